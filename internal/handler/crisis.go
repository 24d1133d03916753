package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CrisisHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Close(c *gin.Context)
	Cancel(c *gin.Context)
}

type crisisHandler struct {
	crises *service.CrisisService
	logger *zap.Logger
}

func NewCrisisHandler(crises *service.CrisisService, logger *zap.Logger) CrisisHandler {
	return &crisisHandler{crises: crises, logger: logger}
}

// Create handles POST /api/crises
func (h *crisisHandler) Create(c *gin.Context) {
	var input models.CreateCrisisInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	crisis, err := h.crises.Create(middleware.Actor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"crisis": crisis})
}

// List handles GET /api/crises?status=&page=&page_size=
func (h *crisisHandler) List(c *gin.Context) {
	crises, meta, err := h.crises.List(models.CrisisStatus(c.Query("status")), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crises": crises, "meta": meta})
}

// Get handles GET /api/crises/:id
func (h *crisisHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	crisis, err := h.crises.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crisis": crisis})
}

// Close handles POST /api/crises/:id/close
func (h *crisisHandler) Close(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	crisis, err := h.crises.Close(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crisis": crisis})
}

// Cancel handles POST /api/crises/:id/cancel
func (h *crisisHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	crisis, err := h.crises.Cancel(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crisis": crisis})
}
