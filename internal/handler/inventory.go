package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InventoryHandler interface {
	SetLevel(c *gin.Context)
	ListLevels(c *gin.Context)
	Allocate(c *gin.Context)
	GetAllocation(c *gin.Context)
	ListAllocations(c *gin.Context)
	Revert(c *gin.Context)
	Delete(c *gin.Context)
}

type inventoryHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewInventoryHandler(inventory *service.InventoryService, logger *zap.Logger) InventoryHandler {
	return &inventoryHandler{inventory: inventory, logger: logger}
}

// SetLevel handles PUT /api/providers/:id/inventory
func (h *inventoryHandler) SetLevel(c *gin.Context) {
	providerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.SetInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	level, err := h.inventory.SetLevel(middleware.Actor(c), providerID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"level": level})
}

// ListLevels handles GET /api/providers/:id/inventory
func (h *inventoryHandler) ListLevels(c *gin.Context) {
	providerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	levels, err := h.inventory.ListLevels(providerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

// Allocate handles POST /api/allocations
func (h *inventoryHandler) Allocate(c *gin.Context) {
	var input models.AllocateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	alloc, err := h.inventory.Allocate(middleware.Actor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"allocation": alloc})
}

// GetAllocation handles GET /api/allocations/:id
func (h *inventoryHandler) GetAllocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	alloc, err := h.inventory.GetAllocation(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": alloc})
}

// ListAllocations handles GET /api/allocations?crisis_id=&provider_id=
func (h *inventoryHandler) ListAllocations(c *gin.Context) {
	allocations, meta, err := h.inventory.ListAllocations(queryID(c, "crisis_id"), queryID(c, "provider_id"), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": allocations, "meta": meta})
}

// Revert handles POST /api/allocations/:id/revert
func (h *inventoryHandler) Revert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	alloc, err := h.inventory.Revert(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": alloc})
}

// Delete handles DELETE /api/allocations/:id
func (h *inventoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.inventory.Delete(middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Allocation deleted"})
}
