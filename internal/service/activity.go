package service

import (
	"encoding/json"

	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder is the activity/audit sink. Recording is best-effort: a
// failed insert is logged and never fails the mutation that produced it.
type Recorder interface {
	Record(actor models.Actor, action, targetType string, targetID int64, note string)
}

// Notifier is the outbound notification sink, fire-and-forget.
type Notifier interface {
	Notify(userID int64, ntype string, payload map[string]any)
}

// NopNotifier discards notifications; used when no channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(int64, string, map[string]any) {}

// ActivityService records audit events and persists notification
// copies before handing them to the push channel.
type ActivityService struct {
	repo   repository.ActivityRepository
	push   Notifier
	logger *zap.Logger
}

func NewActivityService(repo repository.ActivityRepository, push Notifier, logger *zap.Logger) *ActivityService {
	if push == nil {
		push = NopNotifier{}
	}
	return &ActivityService{repo: repo, push: push, logger: logger}
}

func (s *ActivityService) Record(actor models.Actor, action, targetType string, targetID int64, note string) {
	event := &models.ActivityEvent{
		EventID:    uuid.NewString(),
		ActorID:    actor.UserID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Note:       note,
	}
	if err := s.repo.InsertEvent(event); err != nil {
		s.logger.Warn("Failed to record activity event",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Int64("target_id", targetID),
			zap.Error(err))
	}
}

func (s *ActivityService) Notify(userID int64, ntype string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	if err := s.repo.InsertNotification(&models.Notification{UserID: userID, Type: ntype, Payload: string(raw)}); err != nil {
		s.logger.Warn("Failed to persist notification", zap.String("type", ntype), zap.Error(err))
	}
	s.push.Notify(userID, ntype, payload)
}

// ListTimeline returns the audit trail for a target, newest first.
func (s *ActivityService) ListTimeline(targetType string, targetID int64, page models.PageParams) ([]*models.ActivityEvent, models.PageMeta, error) {
	page = page.Normalize()
	events, total, err := s.repo.ListEvents(targetType, targetID, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return events, models.NewPageMeta(page, total), nil
}

// ListNotifications returns a user's stored notifications.
func (s *ActivityService) ListNotifications(userID int64, page models.PageParams) ([]*models.Notification, models.PageMeta, error) {
	page = page.Normalize()
	notifications, total, err := s.repo.ListNotifications(userID, page)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	return notifications, models.NewPageMeta(page, total), nil
}
