package api

import (
	"context"
	"errors"
	"net/http"

	"hospital-chat/internal/automation"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
)

// FlowProcessor saves a submitted form response and runs its follow-up action.
type FlowProcessor interface {
	ProcessFlowResponse(ctx context.Context, resp *models.FlowResponse) (*models.FlowResponse, error)
}

type FlowHandler struct {
	Store     *store.Store
	Processor FlowProcessor
	Logger    *logging.Logger
}

func NewFlowHandler(s *store.Store, processor FlowProcessor, logger *logging.Logger) *FlowHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FlowHandler{Store: s, Processor: processor, Logger: logger}
}

func (h *FlowHandler) Register(g gin.IRouter) {
	g.POST("/flows", h.CreateFlow)
	g.GET("/flows", h.ListFlows)
	g.POST("/flows/responses", h.CreateResponse)
	g.GET("/flows/responses/user/:phone", h.ResponsesByUser)
	g.POST("/flows/messages", h.CreateMessage)
	g.GET("/flows/messages/user/:phone", h.MessagesByUser)
	g.GET("/flows/:id", h.GetFlow)
	g.PUT("/flows/:id", h.UpdateFlow)
	g.DELETE("/flows/:id", h.DeleteFlow)
	g.GET("/flows/:id/responses", h.ResponsesByFlow)
	g.GET("/flows/:id/messages", h.MessagesByFlow)
}

type CreateFlowRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	FlowJSON    map[string]any `json:"flowJson" binding:"required"`
}

func (h *FlowHandler) CreateFlow(c *gin.Context) {
	var req CreateFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and flowJson are required"})
		return
	}
	flow := &models.Flow{Name: req.Name, Description: req.Description, FlowJSON: req.FlowJSON}
	if err := h.Store.CreateFlow(c.Request.Context(), flow); err != nil {
		storeError(c, err, "Flow", "create flow")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "flow": flow})
}

func (h *FlowHandler) GetFlow(c *gin.Context) {
	flow, err := h.Store.GetFlow(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Flow", "get flow")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "flow": flow})
}

func (h *FlowHandler) UpdateFlow(c *gin.Context) {
	var patch store.FlowPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flow, err := h.Store.UpdateFlow(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		storeError(c, err, "Flow", "update flow")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "flow": flow})
}

func (h *FlowHandler) ListFlows(c *gin.Context) {
	flows, err := h.Store.ListFlows(c.Request.Context())
	if err != nil {
		storeError(c, err, "Flow", "get flows")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "flows": nonNil(flows), "count": len(flows)})
}

func (h *FlowHandler) DeleteFlow(c *gin.Context) {
	if err := h.Store.DeleteFlow(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Flow", "delete flow")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Flow deleted successfully"})
}

type CreateFlowResponseRequest struct {
	FlowID    string         `json:"flowId" binding:"required"`
	FlowName  string         `json:"flowName"`
	UserPhone string         `json:"userPhone" binding:"required"`
	ScreenID  string         `json:"screenId"`
	Response  map[string]any `json:"response" binding:"required"`
	MessageID string         `json:"messageId"`
}

func (h *FlowHandler) CreateResponse(c *gin.Context) {
	var req CreateFlowResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flowId, userPhone, and response are required"})
		return
	}
	resp := &models.FlowResponse{
		FlowID:       req.FlowID,
		FlowName:     req.FlowName,
		UserPhone:    req.UserPhone,
		ScreenID:     req.ScreenID,
		Response:     req.Response,
		ResponseType: "api",
		MessageID:    req.MessageID,
	}
	saved, err := h.Processor.ProcessFlowResponse(c.Request.Context(), resp)
	switch {
	case errors.Is(err, automation.ErrFlowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found", "flowResponse": saved})
		return
	case err != nil && saved == nil:
		storeError(c, err, "Flow response", "create flow response")
		return
	case err != nil:
		h.Logger.Warn("flow response saved but follow-up failed", "response_id", saved.ID, "flow_id", saved.FlowID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process flow response", "details": err.Error(), "flowResponse": saved})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "flowResponse": saved})
}

func (h *FlowHandler) ResponsesByFlow(c *gin.Context) {
	responses, err := h.Store.FlowResponsesByFlow(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Flow", "get flow responses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "responses": nonNil(responses), "count": len(responses)})
}

func (h *FlowHandler) ResponsesByUser(c *gin.Context) {
	responses, err := h.Store.FlowResponsesByUser(c.Request.Context(), c.Param("phone"))
	if err != nil {
		storeError(c, err, "Flow", "get user flow responses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "responses": nonNil(responses), "count": len(responses)})
}

type CreateFlowMessageRequest struct {
	FlowID      string `json:"flowId"`
	UserPhone   string `json:"userPhone" binding:"required"`
	MessageType string `json:"messageType" binding:"required"`
	Content     string `json:"content" binding:"required"`
	PatientID   string `json:"patientId"`
	DoctorID    string `json:"doctorId"`
	IsResponse  bool   `json:"isResponse"`
}

// CreateMessage records a message tied to a flow without sending it.
func (h *FlowHandler) CreateMessage(c *gin.Context) {
	var req CreateFlowMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userPhone, messageType, and content are required"})
		return
	}
	msg := &models.Message{
		Direction:   models.DirectionOutbound,
		UserPhone:   req.UserPhone,
		MessageType: req.MessageType,
		Content:     req.Content,
		Status:      models.MessageSent,
		FlowID:      req.FlowID,
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		IsResponse:  req.IsResponse,
	}
	if err := h.Store.CreateMessage(c.Request.Context(), msg); err != nil {
		storeError(c, err, "Message", "create message with flow")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

func (h *FlowHandler) MessagesByFlow(c *gin.Context) {
	h.listMessages(c, store.MessageQuery{FlowID: c.Param("id")})
}

func (h *FlowHandler) MessagesByUser(c *gin.Context) {
	h.listMessages(c, store.MessageQuery{UserPhone: c.Param("phone")})
}

func (h *FlowHandler) listMessages(c *gin.Context, q store.MessageQuery) {
	q.Limit = queryInt(c, "limit", 50)
	messages, err := h.Store.ListMessages(c.Request.Context(), q)
	if err != nil {
		storeError(c, err, "Message", "get messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": nonNil(messages), "count": len(messages)})
}
