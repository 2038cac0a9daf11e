package api

import (
	"errors"
	"net/http"

	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	Store  *store.Store
	Logger *logging.Logger
}

func NewPatientHandler(s *store.Store, logger *logging.Logger) *PatientHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientHandler{Store: s, Logger: logger}
}

func (h *PatientHandler) Register(g gin.IRouter) {
	g.POST("/patients", h.CreatePatient)
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/search/:term", h.SearchPatients)
	g.GET("/patients/phone/:phone", h.GetPatientByPhone)
	g.GET("/patients/:id", h.GetPatient)
	g.PUT("/patients/:id", h.UpdatePatient)
	g.DELETE("/patients/:id", h.DeletePatient)
	g.POST("/patients/:id/medical-history", h.AddMedicalHistory)
	g.GET("/patients/:id/audits", h.GetAudits)
}

type CreatePatientRequest struct {
	Name             string                  `json:"name" binding:"required"`
	PhoneNumber      string                  `json:"phoneNumber" binding:"required"`
	Email            string                  `json:"email"`
	DateOfBirth      string                  `json:"dob"`
	Gender           string                  `json:"gender"`
	Address          string                  `json:"address"`
	EmergencyContact models.EmergencyContact `json:"emergencyContact"`
	Medications      []string                `json:"meds"`
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and phone number are required"})
		return
	}

	ctx := c.Request.Context()
	patient := &models.Patient{
		Name:             req.Name,
		PhoneNumber:      req.PhoneNumber,
		Email:            req.Email,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		Medications:      req.Medications,
	}
	if err := h.Store.CreatePatient(ctx, patient); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, _ := h.Store.GetPatientByPhone(ctx, req.PhoneNumber)
			c.JSON(http.StatusConflict, gin.H{"error": "Patient with this phone number already exists", "patient": existing})
			return
		}
		storeError(c, err, "Patient", "create patient")
		return
	}
	h.Logger.Info("patient created", "patient_id", patient.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "patient": patient})
}

func (h *PatientHandler) GetPatient(c *gin.Context) {
	patient, err := h.Store.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Patient", "get patient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "patient": patient})
}

func (h *PatientHandler) GetPatientByPhone(c *gin.Context) {
	patient, err := h.Store.GetPatientByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		storeError(c, err, "Patient", "get patient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "patient": patient})
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var patch store.PatientPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patient, err := h.Store.UpdatePatient(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		storeError(c, err, "Patient", "update patient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "patient": patient})
}

func (h *PatientHandler) ListPatients(c *gin.Context) {
	patients, err := h.Store.ListPatients(c.Request.Context(), page(c))
	if err != nil {
		storeError(c, err, "Patient", "get patients")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "patients": nonNil(patients), "count": len(patients)})
}

func (h *PatientHandler) SearchPatients(c *gin.Context) {
	patients, err := h.Store.SearchPatientsByName(c.Request.Context(), c.Param("term"))
	if err != nil {
		storeError(c, err, "Patient", "search patients")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "patients": nonNil(patients), "count": len(patients)})
}

// AddMedicalHistory stores the request body as the entry's fields. A "type"
// key, when present, becomes the entry type.
func (h *PatientHandler) AddMedicalHistory(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry := models.HistoryEntry{Fields: fields}
	if t, ok := fields["type"].(string); ok {
		entry.Type = t
		delete(fields, "type")
	}
	history, err := h.Store.AddMedicalHistory(c.Request.Context(), c.Param("id"), entry)
	if err != nil {
		storeError(c, err, "Patient", "add medical history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "medicalHistory": history})
}

func (h *PatientHandler) DeletePatient(c *gin.Context) {
	if err := h.Store.DeletePatient(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Patient", "delete patient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Patient deleted successfully"})
}

func (h *PatientHandler) GetAudits(c *gin.Context) {
	audits, err := h.Store.ListPatientAudits(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Patient", "get patient audits")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "audits": nonNil(audits)})
}
