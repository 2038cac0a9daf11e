package automation

import (
	"context"
	"errors"
	"fmt"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/pkg/phone"
)

const (
	noBookingText    = "Sorry, we couldn't find a scheduled appointment for you. Please contact the reception desk."
	checkInErrorText = "Sorry, we couldn't check you in right now. Please contact the reception desk."

	chatLocation  = "whatsapp"
	chatCheckedBy = "patient"
)

// runCheckIn handles "I've arrived" from a phone.
func (e *Engine) runCheckIn(ctx context.Context, from string) error {
	patient, err := e.checkInPatient(ctx, from)
	if errors.Is(err, store.ErrNotFound) {
		e.logger.Info("check-in from unknown phone, asking for patient", "phone", from)
		return e.sendTemplate(ctx, &turn{phone: from}, sendTemplate(catalog.ExistingPatients, ""))
	}
	if err != nil {
		return err
	}

	candidates, err := e.store.CheckinCandidates(ctx, patient.ID, e.checkinWindow)
	if err != nil {
		return err
	}
	link := whatsapp.Link{PatientID: patient.ID}

	switch len(candidates) {
	case 0:
		_, err = e.dispatcher.SendText(ctx, from, noBookingText, link)
		return err
	case 1:
		_, err = e.CheckIn(ctx, candidates[0].ID, chatLocation, chatCheckedBy, from)
		if err != nil {
			e.replyCheckInFailed(ctx, from, link)
		}
		return err
	}

	t, triggers := e.bookingChoice(ctx, candidates)
	e.catalog.RegisterEphemeral(t, triggers...)
	_, err = e.dispatcher.Send(ctx, t, from, link)
	return err
}

// checkInPatient finds the patient behind a phone. A phone with no patient
// record of its own uses the patient it picked from the existing patients
// list, which is kept on its pending booking.
func (e *Engine) checkInPatient(ctx context.Context, from string) (*models.Patient, error) {
	p, err := e.store.GetPatientByPhone(ctx, from)
	if !errors.Is(err, store.ErrNotFound) {
		return p, err
	}
	pending, perr := e.store.GetPending(ctx, from)
	if perr != nil || pending.PatientID == "" {
		return nil, err
	}
	if p, perr := e.store.GetPatient(ctx, pending.PatientID); perr == nil {
		return p, nil
	}
	return nil, err
}

// bookingChoice builds the list a patient with several bookings picks from.
// Each row id is the booking id.
func (e *Engine) bookingChoice(ctx context.Context, bookings []models.Booking) (*catalog.Template, []*catalog.Trigger) {
	if len(bookings) > maxListRows {
		bookings = bookings[:maxListRows]
	}
	names := map[string]string{}
	rows := make([]catalog.Row, 0, len(bookings))
	triggers := make([]*catalog.Trigger, 0, len(bookings))
	for _, b := range bookings {
		name, ok := names[b.DoctorID]
		if !ok && b.DoctorID != "" {
			if d, err := e.store.GetDoctor(ctx, b.DoctorID); err == nil {
				name = d.Name
			}
			names[b.DoctorID] = name
		}
		if name == "" {
			name, _ = b.Meta["doctorName"].(string)
		}
		slot, _ := b.Meta["slotTitle"].(string)
		if slot == "" {
			slot = b.BookingTime.Format("Mon 3:04 PM")
		}

		rows = append(rows, catalog.Row{
			ID:          b.ID,
			Title:       catalog.TruncateTitle(rowTitle(name, slot), catalog.MaxRowTitle),
			Description: b.BookingTime.Format("Mon Jan 2, 3:04 PM"),
			NextAction:  catalog.MarkArrivedSelected,
		})
		triggers = append(triggers, &catalog.Trigger{
			ID:      "trigger_checkin_" + b.ID,
			Kind:    catalog.ListRowID,
			Value:   b.ID,
			Action:  catalog.MarkArrivedSelected,
			Subject: &catalog.Subject{Kind: catalog.SubjectBooking, ID: b.ID},
		})
	}

	t := &catalog.Template{
		ID:         catalog.NewTemplateID(e.now()),
		Name:       "Check-in - Choose Appointment",
		Kind:       catalog.ListMenu,
		Status:     catalog.StatusPublished,
		Header:     "Welcome! 📍",
		Body:       "You have more than one appointment scheduled. Which one are you here for?",
		ButtonText: "Choose Appointment",
		Sections:   []catalog.Section{{Title: "Appointments", Rows: rows}},
	}
	return t, triggers
}

func rowTitle(doctor, slot string) string {
	if doctor == "" {
		return slot
	}
	return catalog.WithTitle(doctor) + " " + slot
}

// arriveFromChat checks in a booking the patient picked in chat. Bookings of
// another patient are refused.
func (e *Engine) arriveFromChat(ctx context.Context, from, bookingID string) error {
	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		e.replyCheckInFailed(ctx, from, whatsapp.Link{})
		return err
	}
	if p, err := e.checkInPatient(ctx, from); err == nil && b.PatientID != p.ID {
		e.replyCheckInFailed(ctx, from, whatsapp.Link{PatientID: p.ID})
		return fmt.Errorf("booking %s does not belong to %s", bookingID, from)
	}
	_, err = e.CheckIn(ctx, bookingID, chatLocation, chatCheckedBy, from)
	if err != nil {
		e.replyCheckInFailed(ctx, from, whatsapp.Link{PatientID: b.PatientID})
	}
	return err
}

func (e *Engine) replyCheckInFailed(ctx context.Context, to string, link whatsapp.Link) {
	if _, err := e.dispatcher.SendText(ctx, to, checkInErrorText, link); err != nil {
		e.logger.Warn("failed to send check-in error reply", "phone", to, "error", err)
	}
}

// CheckIn marks a booking arrived and tells the patient and the doctor.
// patientPhone overrides the number on the patient record when set.
func (e *Engine) CheckIn(ctx context.Context, bookingID, location, checkedInBy, patientPhone string) (*models.Booking, error) {
	b, err := e.store.MarkArrived(ctx, bookingID, location, checkedInBy)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveBooking("arrived")
	if e.events != nil {
		e.events.NotifyArrival(*b)
	}
	e.logger.Info("patient checked in", "booking_id", b.ID, "patient_id", b.PatientID, "location", location)

	var patient *models.Patient
	if p, err := e.store.GetPatient(ctx, b.PatientID); err == nil {
		patient = p
		if patientPhone == "" {
			patientPhone = phone.FormatIndia(p.PhoneNumber)
		}
	}
	var doctor *models.Doctor
	if b.DoctorID != "" {
		if d, err := e.store.GetDoctor(ctx, b.DoctorID); err == nil {
			doctor = d
		}
	}

	link := whatsapp.Link{PatientID: b.PatientID, DoctorID: b.DoctorID, BookingID: b.ID}
	if patientPhone != "" {
		body := "✅ You're checked in. Please take a seat, we'll call you shortly."
		if doctor != nil {
			body = fmt.Sprintf("✅ You're checked in for your appointment with %s. Please take a seat, we'll call you shortly.", catalog.WithTitle(doctor.Name))
		}
		if _, err := e.dispatcher.SendText(ctx, patientPhone, body, link); err != nil {
			e.logger.Warn("failed to notify patient of check-in", "booking_id", b.ID, "error", err)
		}
	}
	if doctor != nil && doctor.PhoneNumber != "" {
		name := "Your patient"
		if patient != nil && patient.Name != "" {
			name = patient.Name
		}
		body := fmt.Sprintf("📍 %s has arrived for the %s appointment (booking %s).", name, b.BookingTime.Format("Mon Jan 2, 3:04 PM"), b.ID)
		if _, err := e.dispatcher.SendText(ctx, phone.FormatIndia(doctor.PhoneNumber), body, link); err != nil {
			e.logger.Warn("failed to notify doctor of check-in", "booking_id", b.ID, "doctor_id", doctor.ID, "error", err)
		}
	}
	return b, nil
}
