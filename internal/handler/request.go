package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RequestHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	Hide(c *gin.Context)
}

type requestHandler struct {
	requests *service.RequestService
	logger   *zap.Logger
}

func NewRequestHandler(requests *service.RequestService, logger *zap.Logger) RequestHandler {
	return &requestHandler{requests: requests, logger: logger}
}

// Create handles POST /api/requests
func (h *requestHandler) Create(c *gin.Context) {
	var input models.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	env, duplicate, err := h.requests.Create(middleware.Actor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, gin.H{"request": env, "duplicate": true})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": env, "duplicate": false})
}

// Get handles GET /api/requests/:id
func (h *requestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	env, err := h.requests.Get(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": env})
}

// List handles GET /api/requests?kind=&status=&crisis_id=&counterparty_id=
func (h *requestHandler) List(c *gin.Context) {
	filter := repository.RequestFilter{
		Kind:           models.RequestKind(c.Query("kind")),
		Status:         models.RequestStatus(c.Query("status")),
		RequesterID:    queryID(c, "requester_id"),
		CounterpartyID: queryID(c, "counterparty_id"),
		CrisisID:       queryID(c, "crisis_id"),
	}

	envelopes, meta, err := h.requests.List(middleware.Actor(c), filter, pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": envelopes, "meta": meta})
}

// Accept handles POST /api/requests/:id/accept
func (h *requestHandler) Accept(c *gin.Context) {
	h.respond(c, h.requests.Accept)
}

// Reject handles POST /api/requests/:id/reject
func (h *requestHandler) Reject(c *gin.Context) {
	h.respond(c, h.requests.Reject)
}

// Cancel handles POST /api/requests/:id/cancel
func (h *requestHandler) Cancel(c *gin.Context) {
	h.respond(c, h.requests.Cancel)
}

func (h *requestHandler) respond(c *gin.Context, transition func(models.Actor, int64) (*models.RequestEnvelope, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	env, err := transition(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": env})
}

// Complete handles POST /api/requests/:id/complete
func (h *requestHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input models.CompleteRequestInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
			return
		}
	}

	env, err := h.requests.Complete(middleware.Actor(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": env})
}

// Hide handles POST /api/requests/:id/hide
func (h *requestHandler) Hide(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.requests.Hide(middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request hidden"})
}
