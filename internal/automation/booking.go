package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
)

const (
	defaultFee      = 750
	stubPatientName = "WhatsApp Patient"
)

// finalize turns the phone's pending booking into a Booking and removes the
// pending record.
func (e *Engine) finalize(ctx context.Context, run *turn) error {
	pending, err := e.store.GetPending(ctx, run.phone)
	if err != nil {
		return fmt.Errorf("finalize booking: %w", err)
	}

	patient, err := e.ensurePatient(ctx, run.phone, pending.PatientID)
	if err != nil {
		return fmt.Errorf("finalize booking: %w", err)
	}
	run.patient = patient

	doctorName := pending.MetaString("doctorName")
	if pending.DoctorID != "" {
		if d, err := e.store.GetDoctor(ctx, pending.DoctorID); err == nil {
			run.doctor = d
			if doctorName == "" {
				doctorName = d.Name
			}
		}
	}

	if _, ok := store.ParseBookingTime(pending.BookingTime, e.now()); !ok {
		e.logger.Warn("unparseable booking time, booking for now", "phone", run.phone, "booking_time", pending.BookingTime)
	}

	meta := map[string]any{"source": "whatsapp", "userPhone": run.phone}
	if doctorName != "" {
		meta["doctorName"] = doctorName
	}
	if slot := pending.MetaString("slotTitle"); slot != "" {
		meta["slotTitle"] = slot
	}
	booking, err := e.store.CreateBooking(ctx, store.NewBooking{
		PatientID:   patient.ID,
		DoctorID:    pending.DoctorID,
		BookingTime: pending.BookingTime,
		Meta:        meta,
	})
	if err != nil {
		return err
	}
	run.booking = booking

	if err := e.store.DeletePending(ctx, run.phone); err != nil {
		e.logger.Error("failed to delete pending booking", "phone", run.phone, "booking_id", booking.ID, "error", err)
	}
	e.metrics.ObserveBooking("created")
	if e.events != nil {
		e.events.NotifyBooking(*booking)
	}
	e.logger.Info("booking created", "phone", run.phone, "booking_id", booking.ID, "patient_id", patient.ID, "doctor_id", booking.DoctorID)

	record := &models.Message{
		Direction:   models.DirectionOutbound,
		UserPhone:   run.phone,
		MessageType: "booking_confirmation",
		Content:     bookingSummary(booking, doctorName),
		Status:      models.MessageRecorded,
		PatientID:   patient.ID,
		DoctorID:    booking.DoctorID,
		BookingID:   booking.ID,
	}
	if err := e.store.CreateMessage(ctx, record); err != nil {
		e.logger.Warn("failed to record booking confirmation", "booking_id", booking.ID, "error", err)
	}
	return nil
}

// ensurePatient prefers the pending patient id, then the phone, and creates
// a stub patient when neither resolves.
func (e *Engine) ensurePatient(ctx context.Context, phone, patientID string) (*models.Patient, error) {
	if patientID != "" {
		if p, err := e.store.GetPatient(ctx, patientID); err == nil {
			return p, nil
		}
	}
	p, err := e.store.GetPatientByPhone(ctx, phone)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	p = &models.Patient{Name: stubPatientName, PhoneNumber: phone}
	if err := e.store.CreatePatient(ctx, p); err != nil {
		return nil, fmt.Errorf("create stub patient: %w", err)
	}
	e.logger.Info("created stub patient", "phone", phone, "patient_id", p.ID)
	return p, nil
}

func bookingSummary(b *models.Booking, doctorName string) string {
	var sb strings.Builder
	sb.WriteString("Booking confirmed")
	if doctorName != "" {
		sb.WriteString(" with " + catalog.WithTitle(doctorName))
	}
	if slot, _ := b.Meta["slotTitle"].(string); slot != "" {
		sb.WriteString(" for " + slot)
	} else {
		sb.WriteString(" for " + b.BookingTime.Format("Mon Jan 2, 3:04 PM"))
	}
	sb.WriteString(". Booking id: " + b.ID)
	return sb.String()
}

// sendPayment registers a personalized payment template whose "payment
// completed" button leads to a personalized confirmation, then sends it.
func (e *Engine) sendPayment(ctx context.Context, run *turn, eff Effect) error {
	link := whatsapp.Link{PatientID: run.state.PatientID}
	var payment, confirm *catalog.Template

	switch eff.Payment {
	case PaymentAppointment:
		if run.booking == nil {
			return errors.New("no booking to collect payment for")
		}
		payment, confirm = e.appointmentPayment(run, eff)
		link = whatsapp.Link{PatientID: run.booking.PatientID, DoctorID: run.booking.DoctorID, BookingID: run.booking.ID}
	case PaymentLab:
		payment, confirm = e.labPayment(ctx, eff)
	case PaymentPrescription:
		payment, confirm = e.prescriptionPayment(eff)
	default:
		return fmt.Errorf("unknown payment kind %q", eff.Payment)
	}
	if payment == nil || confirm == nil {
		return fmt.Errorf("%s payment templates are missing", eff.Payment)
	}

	confirm.ID = catalog.NewTemplateID(e.now())
	payment.ID = catalog.NewTemplateID(e.now())
	suffix := strings.TrimPrefix(payment.ID, "msg_")
	payment.Body += "\n\n[Payment Link: " + e.paymentLinkBase + suffix + "]"

	doneID := catalog.BtnPaymentDonePrefix + suffix
	buttons := []catalog.Button{{ID: doneID, Title: "✅ Payment Completed", NextAction: catalog.SendTemplate, TargetID: confirm.ID}}
	for _, b := range payment.Buttons {
		if !strings.Contains(b.ID, "payment_done") {
			buttons = append(buttons, b)
		}
	}
	payment.Buttons = buttons

	e.catalog.RegisterEphemeral(confirm)
	e.catalog.RegisterEphemeral(payment, &catalog.Trigger{
		ID:       "trigger_" + doneID,
		Kind:     catalog.ButtonID,
		Value:    doneID,
		Action:   catalog.SendTemplate,
		TargetID: confirm.ID,
	})

	_, err := e.dispatcher.Send(ctx, payment, run.phone, link)
	return err
}

func (e *Engine) appointmentPayment(run *turn, eff Effect) (*catalog.Template, *catalog.Template) {
	payment, ok := e.catalog.Template(catalog.PaymentLink)
	if !ok {
		return nil, nil
	}
	confirm, ok := e.catalog.Template(catalog.AppointmentBooked)
	if !ok {
		return nil, nil
	}

	name := eff.DoctorName
	fee := defaultFee
	if run.doctor != nil {
		if name == "" {
			name = run.doctor.Name
		}
		if run.doctor.ConsultationFee > 0 {
			fee = run.doctor.ConsultationFee
		}
	}
	when := eff.Title
	if when == "" {
		when = run.booking.BookingTime.Format("Mon Jan 2, 3:04 PM")
	}

	var body strings.Builder
	body.WriteString("Please complete your payment to confirm the appointment:\n\n")
	fmt.Fprintf(&body, "💰 Amount: ₹%d\n", fee)
	if name != "" {
		fmt.Fprintf(&body, "🏥 %s Consultation\n", catalog.WithTitle(name))
	}
	fmt.Fprintf(&body, "📅 %s", when)
	payment.Body = body.String()

	confirm.Body = catalog.InjectDoctorName(confirm.Body, name)
	confirm.Body += "\n\n📅 " + when + "\n🆔 Booking: " + run.booking.ID
	return payment, confirm
}

func (e *Engine) labPayment(ctx context.Context, eff Effect) (*catalog.Template, *catalog.Template) {
	payment, ok := e.catalog.Template(catalog.LabBooking)
	if !ok {
		return nil, nil
	}
	confirm, ok := e.catalog.Template(catalog.OrderConfirmed)
	if !ok {
		return nil, nil
	}

	title := eff.Title
	price := 0
	if eff.EntityID != "" {
		if lab, err := e.store.GetLab(ctx, eff.EntityID); err == nil {
			if title == "" {
				title = lab.Name
			}
			price = lab.Price
		}
	}
	if title == "" {
		title = "Lab test"
	}

	var body strings.Builder
	body.WriteString("Please complete your payment to book the test:\n\n")
	fmt.Fprintf(&body, "🧪 %s", title)
	if price > 0 {
		fmt.Fprintf(&body, "\n💰 Amount: ₹%d", price)
	}
	payment.Body = body.String()
	confirm.Body = "✅ Payment received for " + title + ". Your lab test is booked and our team will contact you to schedule sample collection."
	return payment, confirm
}

func (e *Engine) prescriptionPayment(eff Effect) (*catalog.Template, *catalog.Template) {
	payment, ok := e.catalog.Template(catalog.PaymentLink)
	if !ok {
		return nil, nil
	}
	confirm, ok := e.catalog.Template(catalog.OrderConfirmed)
	if !ok {
		return nil, nil
	}
	payment.Header = "Prescription Payment 💊"
	payment.Body = "Please complete your payment for your prescription:\n\n💊 " + eff.Title
	confirm.Body = "✅ Payment received. Your prescription order is confirmed and will be ready for pickup or delivery shortly."
	return payment, confirm
}
