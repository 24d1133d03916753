package handler

import (
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ActivityHandler interface {
	Timeline(c *gin.Context)
	Notifications(c *gin.Context)
}

type activityHandler struct {
	activity *service.ActivityService
	logger   *zap.Logger
}

func NewActivityHandler(activity *service.ActivityService, logger *zap.Logger) ActivityHandler {
	return &activityHandler{activity: activity, logger: logger}
}

// Timeline handles GET /api/activity?target_type=&target_id=
func (h *activityHandler) Timeline(c *gin.Context) {
	targetType := c.Query("target_type")
	if targetType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": "target_type is required"}})
		return
	}

	events, meta, err := h.activity.ListTimeline(targetType, queryID(c, "target_id"), pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "meta": meta})
}

// Notifications handles GET /api/users/me/notifications
func (h *activityHandler) Notifications(c *gin.Context) {
	notifications, meta, err := h.activity.ListNotifications(middleware.Actor(c).UserID, pageParams(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "meta": meta})
}
