package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VictimHandler interface {
	Enroll(c *gin.Context)
	Unenroll(c *gin.Context)
	AdminCreate(c *gin.Context)
	UpdateStatus(c *gin.Context)
	UpdateNote(c *gin.Context)
	Delete(c *gin.Context)
	List(c *gin.Context)
	ReportLocation(c *gin.Context)
	Detect(c *gin.Context)
}

type victimHandler struct {
	victims *service.VictimService
	logger  *zap.Logger
}

func NewVictimHandler(victims *service.VictimService, logger *zap.Logger) VictimHandler {
	return &victimHandler{victims: victims, logger: logger}
}

type enrollInput struct {
	Note string `json:"note"`
}

// Enroll handles POST /api/crises/:id/victims/self
func (h *victimHandler) Enroll(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input enrollInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
			return
		}
	}

	victim, duplicate, err := h.victims.Enroll(middleware.Actor(c), crisisID, input.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"victim": victim, "duplicate": true})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"victim": victim, "duplicate": false})
}

// Unenroll handles DELETE /api/crises/:id/victims/self
func (h *victimHandler) Unenroll(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.victims.Unenroll(middleware.Actor(c), crisisID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Victim record removed"})
}

// AdminCreate handles POST /api/crises/:id/victims
func (h *victimHandler) AdminCreate(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.AdminCreateVictimInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	victim, duplicate, err := h.victims.AdminCreate(middleware.Actor(c), crisisID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"victim": victim, "duplicate": true})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"victim": victim, "duplicate": false})
}

// UpdateStatus handles POST /api/victims/:id/status
func (h *victimHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.UpdateVictimStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	victim, err := h.victims.UpdateStatus(middleware.Actor(c), id, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"victim": victim})
}

type noteInput struct {
	Note string `json:"note"`
}

// UpdateNote handles PUT /api/victims/:id/note
func (h *victimHandler) UpdateNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input noteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	if err := h.victims.UpdateNote(middleware.Actor(c), id, input.Note); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note updated"})
}

// Delete handles DELETE /api/victims/:id
func (h *victimHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.victims.Delete(middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Victim record deleted"})
}

// List handles GET /api/crises/:id/victims?status=
func (h *victimHandler) List(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	victims, meta, err := h.victims.List(crisisID, models.VictimStatus(c.Query("status")), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"victims": victims, "meta": meta})
}

// ReportLocation handles PUT /api/users/me/location
func (h *victimHandler) ReportLocation(c *gin.Context) {
	var input models.ReportLocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	loc, err := h.victims.ReportLocation(middleware.Actor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": loc})
}

// Detect handles POST /api/crises/:id/victims/detect
func (h *victimHandler) Detect(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	hits, err := h.victims.DetectPotentialVictims(middleware.Actor(c), crisisID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"potential_victims": hits, "count": len(hits)})
}
