package catalog

// Template ids the conversation engine refers to directly.
const (
	Welcome            = "msg_welcome_interactive"
	NewOrExisting      = "msg_new_or_existing"
	NewPatientForm     = "msg_new_patient_form"
	ExistingPatients   = "msg_existing_patient_select"
	BookAppointment    = "msg_book_interactive"
	DoctorSelection    = "msg_doctor_selection"
	DoctorSlots        = "msg_doctor_slots"
	ConfirmAppointment = "msg_confirm_appointment"
	PaymentLink        = "msg_payment_link"
	AppointmentBooked  = "msg_appointment_confirmed"
	LabTests           = "msg_lab_interactive"
	LabBooking         = "msg_lab_booking"
	OrderConfirmed     = "msg_order_confirmed"
	Emergency          = "msg_emergency"
)

// Button ids with behaviour beyond sending their target template.
const (
	GreetingTrigger      = "trigger_hi"
	BtnCheckIn           = "btn_checkin"
	BtnConfirmPay        = "btn_confirm_pay"
	BtnCancel            = "btn_cancel"
	BtnCancelPayment     = "btn_cancel_payment"
	BtnPrescriptionPay   = "btn_prescription_pay_now"
	BtnPaymentDonePrefix = "btn_payment_done_"
	SlotButtonPrefix     = "btn_slot_"
)

// ConfirmHeader is the fixed header of the appointment confirmation.
const ConfirmHeader = "Confirm Your Appointment ✅"

// NewPatientFlowID is the external form launched by the new patient button.
const NewPatientFlowID = "1366099374850695"

func seedTemplates() []*Template {
	return []*Template{
		{
			ID: Welcome, Name: "Welcome - Interactive Menu", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Welcome to Hospital Services! 🏥",
			Body:   "Hello! How can we assist you today? Please choose an option below:",
			Footer: "Powered by Hospital Management System",
			Buttons: []Button{
				{ID: "btn_book_appointment", Title: "📅 Book Appointment", TriggerID: "trigger_book_appointment", NextAction: SendTemplate, TargetID: BookAppointment},
				{ID: "btn_lab_tests", Title: "🧪 Lab Tests", TriggerID: "trigger_lab_tests", NextAction: SendTemplate, TargetID: LabTests},
				{ID: "btn_emergency", Title: "🚨 Emergency", TriggerID: "trigger_emergency", NextAction: SendTemplate, TargetID: Emergency},
				{ID: BtnCheckIn, Title: "📍 I've arrived", TriggerID: "trigger_checkin", NextAction: MarkArrived},
			},
		},
		{
			ID: NewOrExisting, Name: "New or Existing Patient?", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Welcome!",
			Body:   "Are you a new patient or an existing patient? Please choose:",
			Footer: "We will help you accordingly",
			Buttons: []Button{
				{ID: "btn_new_patient", Title: "New Patient", TriggerID: "trigger_new_patient", NextAction: StartExternalFlow, TargetID: NewPatientFlowID},
				{ID: "btn_existing_patient", Title: "Existing Patient", TriggerID: "trigger_existing_patient", NextAction: SendTemplate, TargetID: ExistingPatients},
			},
		},
		{
			ID: NewPatientForm, Name: "New Patient - Form", Kind: PlainText, Status: StatusPublished,
			Body: "To register as a new patient please fill this form. Form ID: " + NewPatientFlowID,
		},
		{
			ID: ExistingPatients, Name: "Select Existing Patient", Kind: ListMenu, Status: StatusPublished,
			Header:     "Existing Patients",
			Body:       "Select your name from the list:",
			Footer:     "Your details will be loaded",
			ButtonText: "Choose Name",
			Sections:   []Section{{Title: "Patients"}},
		},
		{
			ID: BookAppointment, Name: "Book Appointment - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Book Your Appointment 📅",
			Body:   "Which type of appointment would you like to book?",
			Footer: "Select your preferred option",
			Buttons: []Button{
				{ID: "btn_general_checkup", Title: "👩‍⚕️ General Checkup", TriggerID: "trigger_general_checkup", NextAction: SendTemplate, TargetID: DoctorSelection},
				{ID: "btn_back_main", Title: "⬅️ Back to Main", TriggerID: "trigger_back_main", NextAction: SendTemplate, TargetID: Welcome},
			},
		},
		{
			ID: DoctorSelection, Name: "Doctor Selection - Interactive", Kind: ListMenu, Status: StatusPublished,
			Header:     "Available Doctors 👩‍⚕️",
			Body:       "Please select a doctor for your appointment:",
			Footer:     "All doctors are available for booking",
			ButtonText: "Choose Doctor",
			Sections: []Section{{
				Title: "General Physicians",
				Rows: []Row{
					{ID: "dr_sharma", Title: "Dr. Sharma", Description: "General Physician - Available Mon-Fri", TriggerID: "trigger_dr_sharma", NextAction: SendTemplate, TargetID: DoctorSlots},
				},
			}},
		},
		{
			ID: DoctorSlots, Name: "Doctor Slots - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Dr. Sharma - Available Slots 📅",
			Body:   "Please select your preferred time slot:",
			Footer: "Consultation fee: ₹750",
			Buttons: []Button{
				{ID: "btn_slot_930", Title: "🕘 Mon 9:30 AM", TriggerID: "trigger_slot_930", NextAction: SendTemplate, TargetID: ConfirmAppointment},
				{ID: "btn_slot_4pm", Title: "🕐 Wed 4:00 PM", TriggerID: "trigger_slot_4pm", NextAction: SendTemplate, TargetID: ConfirmAppointment},
				{ID: "btn_back_doctors", Title: "⬅️ Back to Doctors", TriggerID: "trigger_back_doctors", NextAction: SendTemplate, TargetID: DoctorSelection},
			},
		},
		{
			ID: ConfirmAppointment, Name: "Confirm Appointment - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: ConfirmHeader,
			Body:   "Appointment Details:\n👨‍⚕️ Dr. Sharma\n📅 Monday, Oct 14\n🕘 9:30 AM\n💰 Fee: ₹750\n\nWould you like to confirm and proceed to payment?",
			Footer: "You can reschedule if needed",
			Buttons: []Button{
				{ID: BtnConfirmPay, Title: "✅ Confirm & Pay", TriggerID: "trigger_confirm_pay", NextAction: SendTemplate, TargetID: PaymentLink},
				{ID: "btn_reschedule", Title: "🔄 Reschedule", TriggerID: "trigger_reschedule", NextAction: SendTemplate, TargetID: DoctorSlots},
				{ID: BtnCancel, Title: "❌ Cancel", TriggerID: "trigger_cancel", NextAction: SendTemplate, TargetID: Welcome},
			},
		},
		{
			ID: PaymentLink, Name: "Payment Link - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Payment Required 💳",
			Body:   "Please complete your payment to confirm the appointment:\n\n💰 Amount: ₹750\n🏥 Dr. Sharma Consultation\n\n[Payment Link: https://pay.hospital.com/abc123]",
			Footer: "Secure payment powered by Razorpay",
			Buttons: []Button{
				{ID: "btn_payment_done", Title: "✅ Payment Completed", TriggerID: "trigger_payment_done", NextAction: SendTemplate, TargetID: AppointmentBooked},
				{ID: "btn_payment_help", Title: "❓ Payment Help", TriggerID: "trigger_payment_help", NextAction: SendTemplate, TargetID: "msg_payment_support"},
				{ID: BtnCancelPayment, Title: "❌ Cancel", TriggerID: "trigger_cancel_payment", NextAction: SendTemplate, TargetID: Welcome},
			},
		},
		{
			ID: AppointmentBooked, Name: "Appointment Confirmed - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Appointment Confirmed! 🎉",
			Body:   "Your appointment has been successfully booked:\n\n👨‍⚕️ Dr. Sharma\n🏥 Room 201, 2nd Floor\n\nPlease arrive 15 minutes early.",
			Footer: "Thank you for choosing our hospital",
			Buttons: []Button{
				{ID: "btn_add_calendar", Title: "📅 Add to Calendar", TriggerID: "trigger_add_calendar", NextAction: SendTemplate, TargetID: "msg_calendar_added"},
				{ID: "btn_book_another", Title: "➕ Book Another", TriggerID: "trigger_book_another", NextAction: SendTemplate, TargetID: BookAppointment},
				{ID: "btn_main_menu", Title: "🏠 Main Menu", TriggerID: "trigger_main_menu", NextAction: SendTemplate, TargetID: Welcome},
			},
		},
		{
			ID: LabTests, Name: "Lab Tests - Interactive", Kind: ListMenu, Status: StatusPublished,
			Header:     "Laboratory Services 🧪",
			Body:       "Choose the type of lab test you need:",
			Footer:     "All tests include home collection option",
			ButtonText: "Select Test",
			Sections: []Section{
				{Title: "Common Tests", Rows: []Row{
					{ID: "test_blood_sugar", Title: "Blood Sugar Test", Description: "Fasting & Random - ₹200", TriggerID: "trigger_blood_sugar", NextAction: SendTemplate, TargetID: LabBooking},
					{ID: "test_full_body", Title: "Full Body Checkup", Description: "Complete health screening - ₹1200", TriggerID: "trigger_full_body", NextAction: SendTemplate, TargetID: LabBooking},
				}},
				{Title: "Specialized Tests", Rows: []Row{
					{ID: "test_cardiac", Title: "Cardiac Profile", Description: "Heart health assessment - ₹800", TriggerID: "trigger_cardiac", NextAction: SendTemplate, TargetID: LabBooking},
				}},
			},
		},
		{
			ID: LabBooking, Name: "Lab Test Booking", Kind: ButtonMenu, Status: StatusPublished,
			Header: "Lab Test Payment 🧪",
			Body:   "Please complete your payment to book the test.",
			Footer: "Home collection available",
			Buttons: []Button{
				{ID: "btn_lab_payment_done", Title: "✅ Payment Completed", TriggerID: "trigger_lab_payment_done", NextAction: SendTemplate, TargetID: OrderConfirmed},
				{ID: BtnCancelPayment, Title: "❌ Cancel", NextAction: SendTemplate, TargetID: Welcome},
			},
		},
		{
			ID: OrderConfirmed, Name: "Order Confirmed", Kind: PlainText, Status: StatusPublished,
			Body: "✅ Payment received. Your order is confirmed and our team will contact you shortly.",
		},
		{
			ID: Emergency, Name: "Emergency Services - Interactive", Kind: ButtonMenu, Status: StatusPublished,
			Header: "🚨 Emergency Services",
			Body:   "This is for medical emergencies only. If this is a life-threatening situation, please call 108 immediately.\n\nFor non-emergency urgent care, choose an option:",
			Footer: "Emergency helpline: 108",
			Buttons: []Button{
				{ID: "btn_urgent_care", Title: "🏥 Urgent Care", TriggerID: "trigger_urgent_care", NextAction: SendTemplate, TargetID: "msg_urgent_care_info"},
				{ID: "btn_ambulance", Title: "🚑 Book Ambulance", TriggerID: "trigger_ambulance", NextAction: SendTemplate, TargetID: "msg_ambulance_booking"},
				{ID: "btn_call_emergency", Title: "📞 Call Emergency", TriggerID: "trigger_call_emergency", NextAction: SendTemplate, TargetID: "msg_emergency_contact"},
			},
		},
		plain("msg_payment_support", "Payment Support", "💳 Having trouble paying? Reply with your booking details or call our billing desk at +91 80 4000 1234 and we will help you complete the payment."),
		plain("msg_calendar_added", "Calendar Added", "📅 Your appointment has been noted. We will send you a reminder a day before your visit."),
		plain("msg_urgent_care_info", "Urgent Care Info", "🏥 Our urgent care desk is open 24x7 on the ground floor. Walk in and show this message at the counter."),
		plain("msg_ambulance_booking", "Ambulance Booking", "🚑 Please share your current location and a contact number. Our ambulance team will call you right away. For life-threatening emergencies call 108."),
		plain("msg_emergency_contact", "Emergency Contact", "📞 Emergency helpline: 108\nHospital emergency desk: +91 80 4000 1000"),
	}
}

func plain(id, name, body string) *Template {
	return &Template{ID: id, Name: name, Kind: PlainText, Status: StatusPublished, Body: body}
}

// seedTriggers returns the keyword triggers followed by one trigger for every
// seeded button and row that names one, plus the prescription buttons that
// arrive from messages sent outside the catalog.
func seedTriggers() []*Trigger {
	triggers := []*Trigger{
		{ID: GreetingTrigger, Kind: KeywordSet, Keywords: []string{"hi", "hello", "hey", "start", "menu"}, Action: SendTemplate, TargetID: NewOrExisting},
		{ID: "trigger_arrived", Kind: KeywordSet, Keywords: []string{"arrived", "i arrived", "here", "i am here"}, Action: MarkArrived},
		{ID: "trigger_help", Kind: KeywordSet, Keywords: []string{"help", "support", "assist"}, Action: SendTemplate, TargetID: Welcome},
		{ID: "trigger_prescription_pay_now", Kind: ButtonID, Value: BtnPrescriptionPay, Action: SendTemplate, TargetID: PaymentLink},
		{ID: "trigger_prescription_pay_later", Kind: ButtonID, Value: "btn_prescription_pay_later", Action: SendTemplate, TargetID: Welcome},
	}
	for _, t := range seedTemplates() {
		for _, b := range t.Buttons {
			if b.TriggerID != "" {
				triggers = append(triggers, &Trigger{ID: b.TriggerID, Kind: ButtonID, Value: b.ID, Action: b.NextAction, TargetID: b.TargetID})
			}
		}
		for _, s := range t.Sections {
			for _, r := range s.Rows {
				if r.TriggerID != "" {
					triggers = append(triggers, &Trigger{ID: r.TriggerID, Kind: ListRowID, Value: r.ID, Action: r.NextAction, TargetID: r.TargetID})
				}
			}
		}
	}
	return triggers
}
