package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hospital-chat/internal/whatsapp"
	"hospital-chat/pkg/logging"
	"hospital-chat/pkg/phone"

	"github.com/gin-gonic/gin"
)

// TextSender delivers a plain text message and records it.
type TextSender interface {
	SendText(ctx context.Context, to, body string, link whatsapp.Link) (whatsapp.SendResult, error)
}

// PrescriptionHandler sends prescriptions, lab orders and follow-up reminders
// written by staff to the patient's WhatsApp.
type PrescriptionHandler struct {
	Sender TextSender
	Logger *logging.Logger
	now    func() time.Time
}

func NewPrescriptionHandler(sender TextSender, logger *logging.Logger) *PrescriptionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PrescriptionHandler{Sender: sender, Logger: logger, now: time.Now}
}

// SetClock replaces the time source used for the printed dates.
func (h *PrescriptionHandler) SetClock(now func() time.Time) {
	h.now = now
}

func (h *PrescriptionHandler) Register(g gin.IRouter) {
	g.POST("/prescriptions/send", h.SendPrescription)
	g.POST("/prescriptions/send-labtest", h.SendLabTest)
	g.POST("/prescriptions/send-followup", h.SendFollowUp)
}

var india = loadIndia()

func loadIndia() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}

const (
	indiaDateTime = "2/1/2006, 3:04:05 pm"
	indiaDate     = "2/1/2006"
)

type PrescriptionRequest struct {
	PhoneNumber  string `json:"phoneNumber"`
	PatientName  string `json:"patientName"`
	PatientID    string `json:"patientId"`
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
}

type LabTestRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	PatientName string `json:"patientName"`
	PatientID   string `json:"patientId"`
	LabTestName string `json:"labTestName"`
	Notes       string `json:"notes"`
}

type FollowUpRequest struct {
	PhoneNumber   string      `json:"phoneNumber"`
	PatientName   string      `json:"patientName"`
	PatientID     string      `json:"patientId"`
	FollowUpType  string      `json:"followUpType"`
	FollowUpValue json.Number `json:"followUpValue"`
	Notes         string      `json:"notes"`
}

// missingFields reports whether any value is blank and answers 400 listing
// every required field when one is.
func missingFields(c *gin.Context, fields map[string]string, order ...string) bool {
	for _, name := range order {
		if strings.TrimSpace(fields[name]) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":  false,
				"error":    "Missing required fields",
				"required": order,
			})
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func notesLine(notes string) string {
	if notes == "" {
		return ""
	}
	return "📝 *Notes:* " + notes
}

func (h *PrescriptionHandler) SendPrescription(c *gin.Context) {
	var req PrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if missingFields(c, map[string]string{
		"phoneNumber":  req.PhoneNumber,
		"patientName":  req.PatientName,
		"medicineName": req.MedicineName,
		"dosage":       req.Dosage,
		"frequency":    req.Frequency,
		"duration":     req.Duration,
	}, "phoneNumber", "patientName", "medicineName", "dosage", "frequency", "duration") {
		return
	}

	to := phone.FormatIndia(req.PhoneNumber)
	body := fmt.Sprintf(`🏥 *Prescription Details*

👤 *Patient:* %s
🆔 *Patient ID:* %s

💊 *Medicine:* %s
📋 *Dosage:* %s
⏰ *Frequency:* %s
📅 *Duration:* %s

⚠️ *Important Instructions:*
- Take medicine as prescribed
- Complete the full course
- Contact doctor if you experience any side effects

_Prescribed on: %s_

For any queries, please contact your healthcare provider.`,
		req.PatientName, orNA(req.PatientID), req.MedicineName, req.Dosage, req.Frequency, req.Duration,
		h.now().In(india).Format(indiaDateTime))

	h.Logger.Info("sending prescription", "to", to, "patient_id", req.PatientID)
	res, err := h.Sender.SendText(c.Request.Context(), to, body, whatsapp.Link{PatientID: req.PatientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send prescription", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"messageId":    res.MessageID,
			"phoneNumber":  to,
			"patientName":  req.PatientName,
			"medicineName": req.MedicineName,
			"timestamp":    res.Timestamp,
		},
		"message": "Prescription sent successfully via WhatsApp",
	})
}

func (h *PrescriptionHandler) SendLabTest(c *gin.Context) {
	var req LabTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if missingFields(c, map[string]string{
		"phoneNumber": req.PhoneNumber,
		"patientName": req.PatientName,
		"labTestName": req.LabTestName,
	}, "phoneNumber", "patientName", "labTestName") {
		return
	}

	to := phone.FormatIndia(req.PhoneNumber)
	body := fmt.Sprintf(`🏥 *Lab Test Prescription*

👤 *Patient:* %s
🆔 *Patient ID:* %s

🧪 *Lab Test:* %s
%s

⚠️ *Instructions:*
- Please visit the lab for sample collection
- Fasting may be required for certain tests
- Carry this prescription and your ID

_Prescribed on: %s_

For any queries, please contact your healthcare provider.`,
		req.PatientName, orNA(req.PatientID), req.LabTestName, notesLine(req.Notes),
		h.now().In(india).Format(indiaDateTime))

	h.Logger.Info("sending lab test prescription", "to", to, "patient_id", req.PatientID)
	res, err := h.Sender.SendText(c.Request.Context(), to, body, whatsapp.Link{PatientID: req.PatientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send lab test prescription", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"messageId":   res.MessageID,
			"phoneNumber": to,
			"patientName": req.PatientName,
			"labTestName": req.LabTestName,
			"timestamp":   res.Timestamp,
		},
		"message": "Lab test prescription sent successfully via WhatsApp",
	})
}

// FollowUpDate adds value days or weeks to from.
func FollowUpDate(from time.Time, unit string, value int) (time.Time, error) {
	switch unit {
	case "days":
		return from.AddDate(0, 0, value), nil
	case "weeks":
		return from.AddDate(0, 0, value*7), nil
	}
	return time.Time{}, fmt.Errorf("followUpType must be days or weeks, got %q", unit)
}

func (h *PrescriptionHandler) SendFollowUp(c *gin.Context) {
	var req FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if missingFields(c, map[string]string{
		"phoneNumber":   req.PhoneNumber,
		"patientName":   req.PatientName,
		"followUpType":  req.FollowUpType,
		"followUpValue": req.FollowUpValue.String(),
	}, "phoneNumber", "patientName", "followUpType", "followUpValue") {
		return
	}
	value, err := req.FollowUpValue.Int64()
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "followUpValue must be a positive whole number"})
		return
	}
	now := h.now()
	date, err := FollowUpDate(now, req.FollowUpType, int(value))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	to := phone.FormatIndia(req.PhoneNumber)
	body := fmt.Sprintf(`🏥 *Follow-Up Appointment Reminder*

👤 *Patient:* %s
🆔 *Patient ID:* %s

📅 *Follow-up scheduled in:* %d %s
📆 *Approximate Date:* %s
%s

⚠️ *Reminder:*
- Please schedule your appointment
- Bring previous prescriptions and reports
- Contact us to confirm your appointment

_Scheduled on: %s_

For appointment booking, please contact your healthcare provider.`,
		req.PatientName, orNA(req.PatientID), value, req.FollowUpType,
		date.In(india).Format(indiaDate), notesLine(req.Notes), now.In(india).Format(indiaDateTime))

	h.Logger.Info("sending follow-up reminder", "to", to, "patient_id", req.PatientID, "follow_up", date)
	res, err := h.Sender.SendText(c.Request.Context(), to, body, whatsapp.Link{PatientID: req.PatientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send follow-up reminder", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"messageId":    res.MessageID,
			"phoneNumber":  to,
			"patientName":  req.PatientName,
			"followUpDate": date.UTC().Format(time.RFC3339),
			"timestamp":    res.Timestamp,
		},
		"message": "Follow-up reminder sent successfully via WhatsApp",
	})
}
