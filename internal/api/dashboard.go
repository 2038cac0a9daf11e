package api

import (
	"context"
	"errors"
	"net/http"

	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/pkg/logging"
	"hospital-chat/pkg/phone"

	"github.com/gin-gonic/gin"
)

// StatusChecker reports on the WhatsApp business number.
type StatusChecker interface {
	PhoneNumberStatus(ctx context.Context) (map[string]any, error)
}

// DashboardHandler serves the conversation log, manual sends and the
// reference lists the staff dashboard shows.
type DashboardHandler struct {
	Store  *store.Store
	Sender TextSender
	Status StatusChecker
	Logger *logging.Logger
}

func NewDashboardHandler(s *store.Store, sender TextSender, status StatusChecker, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{Store: s, Sender: sender, Status: status, Logger: logger}
}

func (h *DashboardHandler) Register(g gin.IRouter) {
	g.GET("/messages", h.GetMessages)
	g.POST("/send", h.SendMessage)
	g.GET("/medications", h.GetMedications)
	g.GET("/labs", h.GetLabs)
	g.GET("/whatsapp/status", h.GetWhatsAppStatus)
}

func (h *DashboardHandler) GetMessages(c *gin.Context) {
	q := store.MessageQuery{UserPhone: c.Query("phone"), Limit: queryInt(c, "limit", 50)}
	messages, err := h.Store.ListMessages(c.Request.Context(), q)
	if err != nil {
		storeError(c, err, "Message", "get messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": nonNil(messages), "count": len(messages)})
}

type SendRequest struct {
	To        string `json:"to" binding:"required"`
	Content   string `json:"content" binding:"required"`
	PatientID string `json:"patientId"`
}

func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and content are required"})
		return
	}

	to := phone.FormatIndia(req.To)
	res, err := h.Sender.SendText(c.Request.Context(), to, req.Content, whatsapp.Link{PatientID: req.PatientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": res.MessageID, "phoneNumber": to})
}

func (h *DashboardHandler) GetMedications(c *gin.Context) {
	meds, err := h.Store.ListMedications(c.Request.Context())
	if err != nil {
		storeError(c, err, "Medication", "get medications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "medications": nonNil(meds), "count": len(meds)})
}

func (h *DashboardHandler) GetLabs(c *gin.Context) {
	labs, err := h.Store.ListActiveLabs(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		storeError(c, err, "Lab", "get labs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "labs": nonNil(labs), "count": len(labs)})
}

// GetWhatsAppStatus checks that the configured credentials reach the Graph API.
func (h *DashboardHandler) GetWhatsAppStatus(c *gin.Context) {
	if h.Status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": "whatsapp client not configured"})
		return
	}
	info, err := h.Status.PhoneNumberStatus(c.Request.Context())
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, whatsapp.ErrMissingCredentials) {
			code = http.StatusServiceUnavailable
		}
		h.Logger.Warn("whatsapp status check failed", "error", err)
		c.JSON(code, gin.H{"connected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "phoneNumber": info})
}
