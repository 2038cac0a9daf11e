package api

import (
	"net/http"

	"hospital-chat/internal/catalog"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CatalogHandler exposes the message catalog so integrations can add
// templates and the triggers that send them.
type CatalogHandler struct {
	Catalog *catalog.Catalog
	Logger  *logging.Logger
}

func NewCatalogHandler(c *catalog.Catalog, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{Catalog: c, Logger: logger}
}

func (h *CatalogHandler) Register(g gin.IRouter) {
	g.GET("/catalog/templates", h.GetTemplates)
	g.GET("/catalog/templates/:id", h.GetTemplate)
	g.POST("/catalog/templates", h.CreateTemplate)
	g.GET("/catalog/triggers", h.GetTriggers)
	g.POST("/catalog/triggers", h.CreateTrigger)
}

func (h *CatalogHandler) GetTemplates(c *gin.Context) {
	templates := h.Catalog.Published()
	c.JSON(http.StatusOK, gin.H{"success": true, "templates": templates, "count": len(templates)})
}

func (h *CatalogHandler) GetTemplate(c *gin.Context) {
	t, ok := h.Catalog.Template(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "template": t})
}

func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req catalog.Template
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.Catalog.AddTemplate(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Logger.Info("catalog template added", "template_id", t.ID, "kind", t.Kind)
	c.JSON(http.StatusCreated, gin.H{"success": true, "template": t})
}

func (h *CatalogHandler) GetTriggers(c *gin.Context) {
	triggers := h.Catalog.Triggers()
	c.JSON(http.StatusOK, gin.H{"success": true, "triggers": triggers, "count": len(triggers)})
}

func (h *CatalogHandler) CreateTrigger(c *gin.Context) {
	var req catalog.Trigger
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tr, err := h.Catalog.AddTrigger(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Logger.Info("catalog trigger added", "trigger_id", tr.ID, "kind", tr.Kind, "target", tr.TargetID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "trigger": tr})
}
