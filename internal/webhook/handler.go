package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hospital-chat/internal/config"
	"hospital-chat/internal/dedup"
	"hospital-chat/internal/metrics"
	"hospital-chat/internal/models"
	"hospital-chat/pkg/logging"
	wa "hospital-chat/pkg/models"

	"github.com/gin-gonic/gin"
)

const businessAccountObject = "whatsapp_business_account"

// MessageHandler runs the conversation for one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg wa.IncomingMessage) error
}

// MessageStore records inbound messages and delivery receipts.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	UpdateMessageStatus(ctx context.Context, waMessageID, status string) error
}

// Notifier receives every stored inbound message.
type Notifier interface {
	NotifyMessage(msg models.Message)
}

type Handler struct {
	Config   *config.Config
	Engine   MessageHandler
	Messages MessageStore
	Deduper  dedup.Deduper
	Notifier Notifier
	Metrics  *metrics.ChatMetrics
	Logger   *logging.Logger

	wg sync.WaitGroup
}

func NewHandler(cfg *config.Config, engine MessageHandler, messages MessageStore, deduper dedup.Deduper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		Config:   cfg,
		Engine:   engine,
		Messages: messages,
		Deduper:  deduper,
		Logger:   logger,
	}
}

// RegisterRoutes mounts the Meta webhook on r and the simulation helpers on api.
func (h *Handler) RegisterRoutes(r gin.IRouter, api gin.IRouter) {
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.HandleWebhook)
	api.POST("/webhook/simulate", h.Simulate)
	api.POST("/webhook/simulate-interactive", h.SimulateInteractive)
}

// Wait blocks until every message accepted so far has been processed.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || token != h.Config.VerifyToken {
		h.Logger.Warn("webhook verification rejected", "mode", mode)
		c.Status(http.StatusForbidden)
		return
	}
	h.Logger.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if h.Config.AppSecret != "" && !ValidSignature(h.Config.AppSecret, body, c.GetHeader(SignatureHeader)) {
		h.Logger.Warn("webhook signature mismatch", "remote", c.ClientIP())
		c.Status(http.StatusUnauthorized)
		return
	}

	var payload wa.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.Logger.Warn("error binding webhook json", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if payload.Object != businessAccountObject {
		h.Logger.Debug("not a whatsapp business webhook, ignoring", "object", payload.Object)
		c.Status(http.StatusOK)
		return
	}

	// processing outlives the request
	ctx := context.WithoutCancel(c.Request.Context())
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if !h.accept(ctx, msg) {
					continue
				}
				h.wg.Add(1)
				go func(msg wa.IncomingMessage) {
					defer h.wg.Done()
					h.process(ctx, msg)
				}(msg)
			}
			for _, st := range change.Value.Statuses {
				h.applyStatus(ctx, st)
			}
		}
	}
	c.Status(http.StatusOK)
}

// accept drops retried deliveries and stores the inbound record.
func (h *Handler) accept(ctx context.Context, msg wa.IncomingMessage) bool {
	if h.Deduper != nil && msg.ID != "" {
		first, err := h.Deduper.FirstSeen(ctx, msg.ID)
		if err != nil {
			h.Logger.Warn("dedup lookup failed, processing anyway", "message_id", msg.ID, "error", err)
		} else if !first {
			h.Metrics.ObserveInbound(msg.Type, "duplicate")
			h.Logger.Info("duplicate webhook delivery dropped", "message_id", msg.ID, "from", msg.From)
			return false
		}
	}

	record := &models.Message{
		Direction:   models.DirectionInbound,
		UserPhone:   msg.From,
		MessageType: msg.Type,
		Content:     Content(msg),
		Status:      models.MessageReceived,
		WaMessageID: msg.ID,
	}
	if h.Messages != nil {
		if err := h.Messages.CreateMessage(ctx, record); err != nil {
			h.Logger.Error("failed to store inbound message", "message_id", msg.ID, "error", err)
		} else if h.Notifier != nil {
			h.Notifier.NotifyMessage(*record)
		}
	}
	return true
}

func (h *Handler) process(ctx context.Context, msg wa.IncomingMessage) {
	if h.Engine == nil {
		return
	}
	if err := h.Engine.HandleMessage(ctx, msg); err != nil {
		h.Logger.Error("failed to process inbound message", "message_id", msg.ID, "from", msg.From, "error", err)
	}
}

func (h *Handler) applyStatus(ctx context.Context, st wa.Status) {
	h.Logger.Debug("message status update", "message_id", st.ID, "status", st.Status, "recipient", st.RecipientID)
	if h.Messages == nil || st.ID == "" {
		return
	}
	if err := h.Messages.UpdateMessageStatus(ctx, st.ID, st.Status); err != nil {
		h.Logger.Debug("status update not applied", "message_id", st.ID, "error", err)
	}
}

// Content is the text stored for an inbound message.
func Content(msg wa.IncomingMessage) string {
	switch {
	case msg.Text != nil:
		return msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		return msg.Interactive.ButtonReply.Title
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		return msg.Interactive.ListReply.Title
	case msg.Interactive != nil && msg.Interactive.NfmReply != nil:
		return msg.Interactive.NfmReply.ResponseJSON
	case msg.Button != nil:
		return msg.Button.Text
	}
	return "[" + msg.Type + "]"
}

type simulateRequest struct {
	Phone       string                 `json:"phone" binding:"required"`
	Text        string                 `json:"text"`
	Interactive *wa.InteractiveMessage `json:"interactive"`
}

// Simulate runs a text message through the engine synchronously.
func (h *Handler) Simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and text are required"})
		return
	}
	msg := wa.IncomingMessage{
		From:      req.Phone,
		ID:        "test-message-" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		Type:      "text",
		Text:      &wa.TextBody{Body: req.Text},
	}
	h.simulate(c, msg)
}

// SimulateInteractive runs a button, list or flow reply synchronously.
func (h *Handler) SimulateInteractive(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Interactive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and interactive are required"})
		return
	}
	msg := wa.IncomingMessage{
		From:        req.Phone,
		ID:          "test-interactive-" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		Timestamp:   strconv.FormatInt(time.Now().Unix(), 10),
		Type:        "interactive",
		Interactive: req.Interactive,
	}
	h.simulate(c, msg)
}

func (h *Handler) simulate(c *gin.Context, msg wa.IncomingMessage) {
	ctx := c.Request.Context()
	if !h.accept(ctx, msg) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "duplicate ignored"})
		return
	}
	if h.Engine != nil {
		if err := h.Engine.HandleMessage(ctx, msg); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message", "details": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Test webhook processed successfully",
		"phoneNumber": msg.From,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
