package repository

import (
	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ActivityRepository persists the immutable audit trail and outbound
// notification copies.
type ActivityRepository interface {
	InsertEvent(event *models.ActivityEvent) error
	ListEvents(targetType string, targetID int64, page models.PageParams) ([]*models.ActivityEvent, int, error)
	InsertNotification(n *models.Notification) error
	ListNotifications(userID int64, page models.PageParams) ([]*models.Notification, int, error)
}

type activityRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sqlx.DB, logger *zap.Logger) ActivityRepository {
	return &activityRepository{db: db, logger: logger}
}

func (r *activityRepository) InsertEvent(event *models.ActivityEvent) error {
	query := `
		INSERT INTO activity_events (event_id, actor_id, action, target_type, target_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(query, event.EventID, event.ActorID, event.Action, event.TargetType, event.TargetID, event.Note).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert activity event", zap.String("action", event.Action), zap.Error(err))
		return err
	}

	return nil
}

func (r *activityRepository) ListEvents(targetType string, targetID int64, page models.PageParams) ([]*models.ActivityEvent, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if targetType != "" {
		args = append(args, targetType)
		where += ` AND target_type = ` + placeholder(len(args))
	}
	if targetID != 0 {
		args = append(args, targetID)
		where += ` AND target_id = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM activity_events `+where, args...); err != nil {
		r.logger.Error("Failed to count activity events", zap.Error(err))
		return nil, 0, err
	}

	events := []*models.ActivityEvent{}
	query := `
		SELECT id, event_id, actor_id, action, target_type, target_id, note, created_at
		FROM activity_events ` + where + `
		ORDER BY created_at DESC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&events, query, args...); err != nil {
		r.logger.Error("Failed to list activity events", zap.Error(err))
		return nil, 0, err
	}

	return events, total, nil
}

func (r *activityRepository) InsertNotification(n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, is_read, created_at
	`

	err := r.db.QueryRow(query, n.UserID, n.Type, n.Payload).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.String("type", n.Type), zap.Error(err))
		return err
	}

	return nil
}

func (r *activityRepository) ListNotifications(userID int64, page models.PageParams) ([]*models.Notification, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM notifications WHERE user_id = $1`, userID); err != nil {
		r.logger.Error("Failed to count notifications", zap.Error(err))
		return nil, 0, err
	}

	notifications := []*models.Notification{}
	query := `
		SELECT id, user_id, type, payload, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.Select(&notifications, query, userID, page.PageSize, page.Offset()); err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, 0, err
	}

	return notifications, total, nil
}
