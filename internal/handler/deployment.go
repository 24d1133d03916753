package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeploymentHandler interface {
	Deploy(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Complete(c *gin.Context)
	Withdraw(c *gin.Context)
}

type deploymentHandler struct {
	deployments *service.DeploymentService
	logger      *zap.Logger
}

func NewDeploymentHandler(deployments *service.DeploymentService, logger *zap.Logger) DeploymentHandler {
	return &deploymentHandler{deployments: deployments, logger: logger}
}

// Deploy handles POST /api/deployments
func (h *deploymentHandler) Deploy(c *gin.Context) {
	var input models.DeployInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	deployment, err := h.deployments.Deploy(middleware.Actor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"deployment": deployment})
}

// Get handles GET /api/deployments/:id
func (h *deploymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deployment, err := h.deployments.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployment": deployment})
}

// List handles GET /api/deployments?incident_id=&status=
func (h *deploymentHandler) List(c *gin.Context) {
	deployments, meta, err := h.deployments.List(queryID(c, "incident_id"), models.DeploymentStatus(c.Query("status")), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployments": deployments, "meta": meta})
}

// Complete handles POST /api/deployments/:id/complete
func (h *deploymentHandler) Complete(c *gin.Context) {
	h.transition(c, h.deployments.Complete)
}

// Withdraw handles POST /api/deployments/:id/withdraw
func (h *deploymentHandler) Withdraw(c *gin.Context) {
	h.transition(c, h.deployments.Withdraw)
}

func (h *deploymentHandler) transition(c *gin.Context, fn func(models.Actor, int64) (*models.Deployment, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deployment, err := fn(middleware.Actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployment": deployment})
}
