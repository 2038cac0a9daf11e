package api

import (
	"errors"
	"net/http"

	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
)

type DoctorHandler struct {
	Store  *store.Store
	Logger *logging.Logger
}

func NewDoctorHandler(s *store.Store, logger *logging.Logger) *DoctorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DoctorHandler{Store: s, Logger: logger}
}

func (h *DoctorHandler) Register(g gin.IRouter) {
	g.POST("/doctors", h.CreateDoctor)
	g.GET("/doctors", h.ListDoctors)
	g.GET("/doctors/available/list", h.ListAvailable)
	g.GET("/doctors/phone/:phone", h.GetDoctorByPhone)
	g.GET("/doctors/specialization/:specialization", h.ListBySpecialization)
	g.GET("/doctors/:id", h.GetDoctor)
	g.PUT("/doctors/:id", h.UpdateDoctor)
	g.PATCH("/doctors/:id/availability", h.SetAvailability)
	g.POST("/doctors/:id/schedule", h.AddSchedule)
	g.DELETE("/doctors/:id", h.DeleteDoctor)
}

type CreateDoctorRequest struct {
	Name            string   `json:"name" binding:"required"`
	PhoneNumber     string   `json:"phoneNumber" binding:"required"`
	Specialization  string   `json:"specialization" binding:"required"`
	Email           string   `json:"email"`
	Department      string   `json:"department"`
	LicenseNumber   string   `json:"licenseNumber"`
	Experience      int      `json:"experience"`
	Qualifications  []string `json:"qualifications"`
	ConsultationFee int      `json:"consultationFee"`
	IsAvailable     *bool    `json:"isAvailable"`
}

func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, phone number, and specialization are required"})
		return
	}

	ctx := c.Request.Context()
	doctor := &models.Doctor{
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		Specialization:  req.Specialization,
		Email:           req.Email,
		Department:      req.Department,
		LicenseNumber:   req.LicenseNumber,
		Experience:      req.Experience,
		Qualifications:  req.Qualifications,
		ConsultationFee: req.ConsultationFee,
		IsAvailable:     req.IsAvailable,
	}
	if err := h.Store.CreateDoctor(ctx, doctor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, _ := h.Store.GetDoctorByPhone(ctx, req.PhoneNumber)
			c.JSON(http.StatusConflict, gin.H{"error": "Doctor with this phone number already exists", "doctor": existing})
			return
		}
		storeError(c, err, "Doctor", "create doctor")
		return
	}
	h.Logger.Info("doctor created", "doctor_id", doctor.ID, "specialization", doctor.Specialization)
	c.JSON(http.StatusCreated, gin.H{"success": true, "doctor": doctor})
}

func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctor, err := h.Store.GetDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Doctor", "get doctor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctor": doctor})
}

func (h *DoctorHandler) GetDoctorByPhone(c *gin.Context) {
	doctor, err := h.Store.GetDoctorByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		storeError(c, err, "Doctor", "get doctor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctor": doctor})
}

func (h *DoctorHandler) ListBySpecialization(c *gin.Context) {
	doctors, err := h.Store.DoctorsBySpecialization(c.Request.Context(), c.Param("specialization"))
	if err != nil {
		storeError(c, err, "Doctor", "get doctors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctors": nonNil(doctors), "count": len(doctors)})
}

func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	var patch store.DoctorPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doctor, err := h.Store.UpdateDoctor(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		storeError(c, err, "Doctor", "update doctor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctor": doctor})
}

func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.Store.ListDoctors(c.Request.Context(), page(c))
	if err != nil {
		storeError(c, err, "Doctor", "get doctors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctors": nonNil(doctors), "count": len(doctors)})
}

func (h *DoctorHandler) ListAvailable(c *gin.Context) {
	doctors, err := h.Store.AvailableDoctors(c.Request.Context())
	if err != nil {
		storeError(c, err, "Doctor", "get available doctors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctors": nonNil(doctors), "count": len(doctors)})
}

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable"`
}

func (h *DoctorHandler) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAvailable == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isAvailable must be a boolean value"})
		return
	}
	doctor, err := h.Store.SetDoctorAvailability(c.Request.Context(), c.Param("id"), *req.IsAvailable)
	if err != nil {
		storeError(c, err, "Doctor", "set doctor availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "doctor": doctor})
}

func (h *DoctorHandler) AddSchedule(c *gin.Context) {
	var entry models.ScheduleEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	schedule, err := h.Store.AddSchedule(c.Request.Context(), c.Param("id"), entry)
	if err != nil {
		storeError(c, err, "Doctor", "add doctor schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "schedule": schedule})
}

func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	if err := h.Store.DeleteDoctor(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Doctor", "delete doctor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Doctor deleted successfully"})
}
