package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
	wa "hospital-chat/pkg/models"
)

const flowThanksText = "Thanks! We received your response and saved it."

var flowTokenRef = regexp.MustCompile(`(?i)flow_token_[0-9a-zA-Z_\-]*`)

// handleFlowReply stores a completed WhatsApp Flow form, closes its tracking
// record and acts on the submitted fields.
func (e *Engine) handleFlowReply(ctx context.Context, msg wa.IncomingMessage) error {
	reply := msg.Interactive.NfmReply
	form := map[string]any{}
	if reply.ResponseJSON != "" {
		if err := json.Unmarshal([]byte(reply.ResponseJSON), &form); err != nil {
			e.logger.Warn("could not parse flow response json", "phone", msg.From, "error", err)
			form = map[string]any{}
		}
	}

	tracking := e.matchTracking(ctx, msg.From, form, reply.Body)

	if raw, err := json.Marshal(msg); err == nil {
		if _, err := e.store.CreateWebhookMessage(ctx, msg.From, string(raw)); err != nil {
			e.logger.Warn("failed to persist raw webhook message", "phone", msg.From, "error", err)
		}
	}

	resp := &models.FlowResponse{
		FlowName:     reply.Name,
		UserPhone:    msg.From,
		Response:     form,
		RawResponse:  reply.ResponseJSON,
		ResponseType: "flow_completion",
		MessageID:    msg.ID,
	}
	if tracking != nil {
		resp.FlowID = tracking.FlowID
	}
	if err := e.store.SaveFlowResponse(ctx, resp); err != nil {
		e.logger.Error("failed to save flow response", "phone", msg.From, "error", err)
	} else {
		e.logger.Info("flow response saved", "response_id", resp.ID, "flow_id", resp.FlowID, "phone", msg.From)
		if tracking != nil {
			if err := e.store.CompleteFlowTracking(ctx, tracking.ID, resp.ID); err != nil {
				e.logger.Warn("failed to complete flow tracking", "tracking_id", tracking.ID, "error", err)
			}
		}
		if _, err := e.dispatcher.SendText(ctx, msg.From, flowThanksText, whatsapp.Link{FlowID: resp.FlowID, IsResponse: true}); err != nil {
			e.logger.Warn("failed to acknowledge flow response", "phone", msg.From, "error", err)
		}
	}

	if err := e.upsertPatientFromForm(ctx, msg.From, form); err != nil {
		e.logger.Warn("failed to upsert patient from flow data", "phone", msg.From, "error", err)
	}

	flowName := strings.ToLower(reply.Name)
	var err error
	switch {
	case strings.Contains(flowName, "appointment"):
		err = e.processAppointmentForm(ctx, msg.From, form)
	case strings.Contains(flowName, "symptom"):
		err = e.processSymptomForm(ctx, msg.From, form)
	case strings.Contains(flowName, "registration"):
		err = e.processRegistrationForm(ctx, msg.From, form)
	default:
		e.logger.Debug("no processor for flow", "flow_name", reply.Name)
	}
	if err != nil {
		e.logger.Error("failed to process flow form", "flow_name", reply.Name, "phone", msg.From, "error", err)
	}
	return nil
}

// matchTracking finds the launch a reply belongs to: by the token in the
// form, then a token in the reply body, then the phone's latest launch.
func (e *Engine) matchTracking(ctx context.Context, from string, form map[string]any, body string) *models.FlowTracking {
	token := ToString(form["flow_token"])
	if token == "" {
		token = flowTokenRef.FindString(body)
	}
	if token != "" {
		t, err := e.store.FlowTrackingByToken(ctx, token)
		if err == nil {
			return t
		}
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("flow tracking lookup failed", "token", token, "error", err)
		}
	}
	t, err := e.store.LatestFlowTracking(ctx, from)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("latest flow tracking lookup failed", "phone", from, "error", err)
		}
		return nil
	}
	return t
}

// formGender reads the gender question. "0_Yes" is the male option of the
// registration form; anything unrecognized counts as female.
func formGender(form map[string]any) string {
	raw := strings.ToLower(formString(form, "Choose_one", "choose_one", "gender", "sex"))
	switch {
	case raw == "":
		return ""
	case raw == "female" || raw == "f":
		return "female"
	case strings.Contains(raw, "0_") || strings.Contains(raw, "yes") || raw == "male" || raw == "m":
		return "male"
	default:
		return "female"
	}
}

func (e *Engine) upsertPatientFromForm(ctx context.Context, from string, form map[string]any) error {
	var patch store.PatientPatch
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	set(&patch.Name, formString(form, "name", "full_name", "text_input", "patient_name"))
	set(&patch.Gender, formGender(form))
	set(&patch.Email, formString(form, "email"))
	set(&patch.DateOfBirth, formString(form, "date_of_birth", "dob"))
	if patch.Name == nil && patch.Gender == nil {
		return nil
	}
	return e.savePatient(ctx, from, patch)
}

// savePatient updates the patient on this phone, or creates one.
func (e *Engine) savePatient(ctx context.Context, from string, patch store.PatientPatch) error {
	existing, err := e.store.GetPatientByPhone(ctx, from)
	switch {
	case err == nil:
		_, err = e.store.UpdatePatient(ctx, existing.ID, patch)
		return err
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	p := &models.Patient{PhoneNumber: from}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.DateOfBirth != nil {
		p.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.EmergencyContact != nil {
		p.EmergencyContact = *patch.EmergencyContact
	}
	return e.store.CreatePatient(ctx, p)
}

// processAppointmentForm books the first available doctor of the requested
// specialization.
func (e *Engine) processAppointmentForm(ctx context.Context, from string, form map[string]any) error {
	specialization := formString(form, "specialization")
	if specialization == "" {
		specialization = "general"
	}
	patientName := formString(form, "name", "patient_name")

	patient, err := e.store.GetPatientByPhone(ctx, from)
	if errors.Is(err, store.ErrNotFound) && patientName != "" {
		patient = &models.Patient{Name: patientName, PhoneNumber: from}
		err = e.store.CreatePatient(ctx, patient)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	link := whatsapp.Link{}
	if patient != nil {
		link.PatientID = patient.ID
		if patientName == "" {
			patientName = patient.Name
		}
	}

	doctors, err := e.store.DoctorsBySpecialization(ctx, specialization)
	if err != nil {
		return err
	}
	if len(doctors) == 0 {
		body := fmt.Sprintf("⚠️ Sorry, no doctors are currently available for %s. Please try again later or contact our reception.", specialization)
		_, err = e.dispatcher.SendText(ctx, from, body, link)
		return err
	}
	doctor := doctors[0]
	link.DoctorID = doctor.ID

	if patient != nil {
		b, err := e.store.CreateBooking(ctx, store.NewBooking{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			BookingTime: formString(form, "preferred_date", "date"),
			Meta:        map[string]any{"source": "whatsapp_flow", "specialization": specialization},
		})
		if err != nil {
			e.logger.Warn("failed to create booking from appointment form", "phone", from, "error", err)
		} else {
			link.BookingID = b.ID
			e.metrics.ObserveBooking("created")
			if e.events != nil {
				e.events.NotifyBooking(*b)
			}
		}
	}

	body := fmt.Sprintf("🏥 Appointment Booked!\n\n👤 Patient: %s\n👨‍⚕️ Doctor: %s\n🏥 Department: %s\n📞 Contact: %s\n\nYour appointment has been scheduled. The doctor will contact you soon.",
		nonEmpty(patientName, "Not provided"), doctor.Name, doctor.Specialization, doctor.PhoneNumber)
	_, err = e.dispatcher.SendText(ctx, from, body, link)
	return err
}

func (e *Engine) processSymptomForm(ctx context.Context, from string, form map[string]any) error {
	symptoms := ToStrings(form["symptoms"])
	urgency := formString(form, "urgency")
	if urgency == "" {
		urgency = "normal"
	}

	link := whatsapp.Link{}
	patient, err := e.store.GetPatientByPhone(ctx, from)
	if err == nil {
		link.PatientID = patient.ID
		if len(symptoms) > 0 {
			_, err := e.store.AddMedicalHistory(ctx, patient.ID, models.HistoryEntry{
				Type: "symptom_report",
				Fields: map[string]any{
					"symptoms":      symptoms,
					"urgency":       urgency,
					"reportedVia":   "whatsapp_flow",
					"needsFollowUp": urgency == "urgent",
				},
			})
			if err != nil {
				e.logger.Warn("failed to add symptom report", "patient_id", patient.ID, "error", err)
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	var body string
	if urgency == "urgent" {
		body = "🚨 URGENT: Based on your symptoms, please seek immediate medical attention. Call emergency services or visit the nearest hospital.\n\n📞 Emergency: 108"
	} else {
		var sb strings.Builder
		sb.WriteString("🩺 Thank you for reporting your symptoms. Based on your input:\n\n")
		for _, s := range symptoms {
			sb.WriteString("• " + s + "\n")
		}
		sb.WriteString("\nWe recommend scheduling an appointment with a doctor. Would you like to book an appointment now?")
		body = sb.String()
	}
	_, err = e.dispatcher.SendText(ctx, from, body, link)
	return err
}

func (e *Engine) processRegistrationForm(ctx context.Context, from string, form map[string]any) error {
	var patch store.PatientPatch
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	set(&patch.Name, formString(form, "name", "full_name"))
	set(&patch.Email, formString(form, "email"))
	set(&patch.DateOfBirth, formString(form, "date_of_birth", "dob"))
	set(&patch.Gender, formGender(form))
	set(&patch.Address, formString(form, "address"))
	contact := models.EmergencyContact{
		Name:         formString(form, "emergency_contact_name"),
		PhoneNumber:  formString(form, "emergency_contact_phone"),
		Relationship: formString(form, "emergency_contact_relationship"),
	}
	if contact != (models.EmergencyContact{}) {
		patch.EmergencyContact = &contact
	}

	if err := e.savePatient(ctx, from, patch); err != nil {
		return err
	}
	patient, err := e.store.GetPatientByPhone(ctx, from)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("✅ Registration Complete!\n\n👤 Name: %s\n📞 Phone: %s\n📧 Email: %s\n\nYou can now book appointments and access our services.",
		nonEmpty(patient.Name, "Not provided"), patient.PhoneNumber, nonEmpty(patient.Email, "Not provided"))
	_, err = e.dispatcher.SendText(ctx, from, body, whatsapp.Link{PatientID: patient.ID})
	return err
}
