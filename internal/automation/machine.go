package automation

import (
	"hospital-chat/internal/catalog"
	"hospital-chat/internal/models"
)

// Stage is where a phone is in the booking conversation. It is derived from
// the stored pending booking rather than stored itself.
type Stage string

const (
	StageNone            Stage = "none"
	StageDoctorChosen    Stage = "doctor_chosen"
	StageSlotChosen      Stage = "slot_chosen"
	StageAwaitingPayment Stage = "awaiting_payment"
	StageFinalized       Stage = "finalized"
	StageAbandoned       Stage = "abandoned"
)

// State is the booking conversation of one phone.
type State struct {
	Stage       Stage
	HasPending  bool
	PatientID   string
	DoctorID    string
	DoctorName  string
	BookingTime string
	SlotTitle   string
}

// StateFrom derives the state from a pending booking, which may be nil.
func StateFrom(p *models.PendingBooking) State {
	if p == nil {
		return State{Stage: StageNone}
	}
	s := State{
		Stage:       StageNone,
		HasPending:  true,
		PatientID:   p.PatientID,
		DoctorID:    p.DoctorID,
		DoctorName:  p.MetaString("doctorName"),
		BookingTime: p.BookingTime,
		SlotTitle:   p.MetaString("slotTitle"),
	}
	switch {
	case s.BookingTime != "":
		s.Stage = StageSlotChosen
	case s.DoctorID != "" || s.DoctorName != "":
		s.Stage = StageDoctorChosen
	}
	return s
}

// finalizable reports whether there is anything to turn into a booking.
func (s State) finalizable() bool {
	return s.HasPending && (s.DoctorID != "" || s.DoctorName != "" || s.BookingTime != "")
}

type EventKind string

const (
	EventGreeting         EventKind = "greeting"
	EventDoctorSelected   EventKind = "doctor_selected"
	EventSlotSelected     EventKind = "slot_selected"
	EventConfirmPay       EventKind = "confirm_pay"
	EventPaymentDone      EventKind = "payment_done"
	EventLabSelected      EventKind = "lab_selected"
	EventPrescriptionPay  EventKind = "prescription_pay"
	EventPatientSelected  EventKind = "patient_selected"
	EventCancelled        EventKind = "cancelled"
	EventCheckInRequested EventKind = "checkin_requested"
	EventCheckInSelected  EventKind = "checkin_selected"
	EventShowTemplate     EventKind = "show_template"
	EventStartFlow        EventKind = "start_flow"
	EventUnmatched        EventKind = "unmatched"
)

// Event is an inbound signal after classification. Only the fields that
// belong to Kind are set.
type Event struct {
	Kind EventKind

	KnownPatient bool
	PatientID    string
	DoctorID     string
	DoctorName   string
	SlotLabel    string
	SlotTitle    string
	LabID        string
	Title        string
	BookingID    string
	TemplateID   string
	FlowID       string
}

type EffectKind string

const (
	EffectSendTemplate      EffectKind = "send_template"
	EffectStartRegistration EffectKind = "start_registration"
	EffectStartFlow         EffectKind = "start_flow"
	EffectSavePending       EffectKind = "save_pending"
	EffectFinalizeBooking   EffectKind = "finalize_booking"
	EffectSendPayment       EffectKind = "send_payment"
	EffectSendText          EffectKind = "send_text"
	EffectRunCheckIn        EffectKind = "run_checkin"
	EffectMarkArrived       EffectKind = "mark_arrived"
)

// PaymentKind selects the payment and confirmation templates.
type PaymentKind string

const (
	PaymentAppointment  PaymentKind = "appointment"
	PaymentLab          PaymentKind = "lab"
	PaymentPrescription PaymentKind = "prescription"
)

// Effect is one side effect the engine applies after a transition.
type Effect struct {
	Kind EffectKind

	TemplateID  string
	DoctorID    string
	DoctorName  string
	PatientID   string
	BookingTime string
	SlotTitle   string
	FlowID      string
	Body        string
	Payment     PaymentKind
	Title       string
	EntityID    string
	BookingID   string
}

const noPendingText = "Sorry, we couldn't find a booking in progress for you. Please start again from the menu."

// Transition computes the next state and the effects of ev. It performs no
// I/O.
func Transition(s State, ev Event) (State, []Effect) {
	next := s
	switch ev.Kind {
	case EventGreeting:
		if ev.KnownPatient {
			return next, []Effect{sendTemplate(catalog.Welcome, "")}
		}
		return next, []Effect{{Kind: EffectStartRegistration}}

	case EventDoctorSelected:
		next.Stage = StageDoctorChosen
		next.HasPending = true
		next.DoctorID = ev.DoctorID
		next.DoctorName = ev.DoctorName
		return next, []Effect{
			{Kind: EffectSavePending, DoctorID: ev.DoctorID, DoctorName: ev.DoctorName},
			sendTemplate(catalog.DoctorSlots, next.DoctorName),
		}

	case EventSlotSelected:
		next.Stage = StageSlotChosen
		next.HasPending = true
		next.BookingTime = ev.SlotLabel
		next.SlotTitle = ev.SlotTitle
		save := Effect{Kind: EffectSavePending, BookingTime: ev.SlotLabel, SlotTitle: ev.SlotTitle}
		if ev.DoctorID != "" && s.DoctorID == "" {
			save.DoctorID = ev.DoctorID
			next.DoctorID = ev.DoctorID
		}
		if ev.DoctorName != "" && s.DoctorName == "" {
			save.DoctorName = ev.DoctorName
			next.DoctorName = ev.DoctorName
		}
		confirm := sendTemplate(catalog.ConfirmAppointment, next.DoctorName)
		confirm.DoctorID = next.DoctorID
		return next, []Effect{save, confirm}

	case EventConfirmPay:
		if !s.finalizable() {
			return State{Stage: StageNone, HasPending: s.HasPending, PatientID: s.PatientID}, []Effect{
				{Kind: EffectSendText, Body: noPendingText},
				sendTemplate(catalog.Welcome, ""),
			}
		}
		next = State{Stage: StageAwaitingPayment, PatientID: s.PatientID, DoctorID: s.DoctorID, DoctorName: s.DoctorName}
		return next, []Effect{
			{Kind: EffectFinalizeBooking},
			{Kind: EffectSendPayment, Payment: PaymentAppointment, DoctorName: s.DoctorName, Title: s.SlotTitle},
		}

	case EventPaymentDone:
		next.Stage = StageFinalized
		return next, []Effect{sendTemplate(ev.TemplateID, s.DoctorName)}

	case EventLabSelected:
		return next, []Effect{{Kind: EffectSendPayment, Payment: PaymentLab, Title: ev.Title, EntityID: ev.LabID}}

	case EventPrescriptionPay:
		return next, []Effect{{Kind: EffectSendPayment, Payment: PaymentPrescription, Title: "Prescription medicines"}}

	case EventPatientSelected:
		next.HasPending = true
		next.PatientID = ev.PatientID
		return next, []Effect{
			{Kind: EffectSavePending, PatientID: ev.PatientID},
			sendTemplate(catalog.Welcome, ""),
		}

	case EventCancelled:
		next.Stage = StageAbandoned
		return next, []Effect{sendTemplate(catalog.Welcome, "")}

	case EventCheckInRequested:
		return next, []Effect{{Kind: EffectRunCheckIn}}

	case EventCheckInSelected:
		return next, []Effect{{Kind: EffectMarkArrived, BookingID: ev.BookingID}}

	case EventShowTemplate:
		return next, []Effect{sendTemplate(ev.TemplateID, s.DoctorName)}

	case EventStartFlow:
		return next, []Effect{{Kind: EffectStartFlow, FlowID: ev.FlowID}}

	default:
		return next, []Effect{sendTemplate(catalog.Welcome, "")}
	}
}

func sendTemplate(id, doctorName string) Effect {
	return Effect{Kind: EffectSendTemplate, TemplateID: id, DoctorName: doctorName}
}
