package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ParticipationHandler interface {
	Join(c *gin.Context)
	RequestParticipation(c *gin.Context)
	ApproveRequest(c *gin.Context)
	RejectRequest(c *gin.Context)
	ListRequests(c *gin.Context)
	Invite(c *gin.Context)
	AcceptInvitation(c *gin.Context)
	DeclineInvitation(c *gin.Context)
	DeleteInvitation(c *gin.Context)
	ListInvitations(c *gin.Context)
	Leave(c *gin.Context)
	Remove(c *gin.Context)
	ListParticipants(c *gin.Context)
}

type participationHandler struct {
	participation *service.ParticipationService
	logger        *zap.Logger
}

func NewParticipationHandler(participation *service.ParticipationService, logger *zap.Logger) ParticipationHandler {
	return &participationHandler{participation: participation, logger: logger}
}

// Join handles POST /api/crises/:id/participants (admin direct join)
func (h *participationHandler) Join(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.JoinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	participant, err := h.participation.Join(middleware.Actor(c), crisisID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"participant": participant})
}

// RequestParticipation handles POST /api/crises/:id/participation-requests
func (h *participationHandler) RequestParticipation(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.ParticipationRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	req, duplicate, err := h.participation.RequestParticipation(middleware.Actor(c), crisisID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	if duplicate {
		// Soft signal, not an error: the original pending request stands.
		c.JSON(http.StatusOK, gin.H{"duplicate": true})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": req, "duplicate": false})
}

// ApproveRequest handles POST /api/participation-requests/:id/approve
func (h *participationHandler) ApproveRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.participation.ApproveRequest(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// RejectRequest handles POST /api/participation-requests/:id/reject
func (h *participationHandler) RejectRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.participation.RejectRequest(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// ListRequests handles GET /api/crises/:id/participation-requests
func (h *participationHandler) ListRequests(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	requests, meta, err := h.participation.ListRequests(
		middleware.Actor(c),
		crisisID,
		models.ParticipationRequestStatus(c.Query("status")),
		pageParams(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests, "meta": meta})
}

// Invite handles POST /api/crises/:id/invitations
func (h *participationHandler) Invite(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.InviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	inv, err := h.participation.Invite(middleware.Actor(c), crisisID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invitation": inv})
}

// AcceptInvitation handles POST /api/invitations/:id/accept
func (h *participationHandler) AcceptInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.participation.AcceptInvitation(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": inv})
}

// DeclineInvitation handles POST /api/invitations/:id/decline
func (h *participationHandler) DeclineInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.participation.DeclineInvitation(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": inv})
}

// DeleteInvitation handles DELETE /api/invitations/:id
func (h *participationHandler) DeleteInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.participation.DeleteInvitation(middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation deleted"})
}

// ListInvitations handles GET /api/invitations?crisis_id=
func (h *participationHandler) ListInvitations(c *gin.Context) {
	invitations, meta, err := h.participation.ListInvitations(middleware.Actor(c), queryID(c, "crisis_id"), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations, "meta": meta})
}

// Leave handles POST /api/crises/:id/leave
func (h *participationHandler) Leave(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.participation.Leave(middleware.Actor(c), crisisID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left crisis"})
}

// Remove handles DELETE /api/crises/:id/participants/:userID
func (h *participationHandler) Remove(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	if err := h.participation.Remove(middleware.Actor(c), crisisID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Participant removed"})
}

// ListParticipants handles GET /api/crises/:id/participants
func (h *participationHandler) ListParticipants(c *gin.Context) {
	crisisID, ok := pathID(c, "id")
	if !ok {
		return
	}

	participants, meta, err := h.participation.ListParticipants(crisisID, pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants, "meta": meta})
}
