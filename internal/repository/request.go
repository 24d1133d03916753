package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// RequestFilter narrows request envelope listings.
type RequestFilter struct {
	Kind           models.RequestKind
	Status         models.RequestStatus
	RequesterID    int64
	CounterpartyID int64
	CrisisID       int64
	// ViewerID hides envelopes the viewer soft-deleted from their side.
	ViewerID int64
}

// RequestRepository defines storage operations for request envelopes
// shared by all four request kinds.
type RequestRepository interface {
	Create(env *models.RequestEnvelope) error
	GetByID(id int64) (*models.RequestEnvelope, error)
	// FindRecentPending supports caller-level idempotency: returns an
	// existing pending envelope with the same requester, counterparty,
	// kind and target window created at or after the cutoff. The caller
	// computes the cutoff from its own clock.
	FindRecentPending(kind models.RequestKind, requesterID, counterpartyID int64, targetAt *time.Time, since time.Time) (*models.RequestEnvelope, error)
	List(filter RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, int, error)
	// UpdateStatusCAS moves the envelope from expected to next and
	// reports whether the row actually changed.
	UpdateStatusCAS(id int64, expected, next models.RequestStatus) (bool, error)
	// SetHidden flags the envelope hidden for one side.
	SetHidden(id, viewerID int64) (bool, error)

	// Provider cooldowns
	GetCooldownUntil(providerID int64) (*time.Time, error)
	SetCooldownUntil(providerID int64, until time.Time) error
}

type requestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sqlx.DB, logger *zap.Logger) RequestRepository {
	return &requestRepository{db: db, logger: logger}
}

const requestColumns = `id, kind, requester_id, counterparty_id, crisis_id, status, target_at,
	blood_type, quantity, service, description, latitude, longitude,
	hidden_by_requester, hidden_by_counterparty, created_at, updated_at`

func (r *requestRepository) Create(env *models.RequestEnvelope) error {
	query := `
		INSERT INTO requests (kind, requester_id, counterparty_id, crisis_id, status, target_at,
			blood_type, quantity, service, description, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		env.Kind,
		env.RequesterID,
		env.CounterpartyID,
		env.CrisisID,
		env.Status,
		env.TargetAt,
		env.BloodType,
		env.Quantity,
		env.Service,
		env.Description,
		env.Latitude,
		env.Longitude,
	).Scan(&env.ID, &env.CreatedAt, &env.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to create request envelope", zap.String("kind", string(env.Kind)), zap.Error(err))
		return err
	}

	return nil
}

func (r *requestRepository) GetByID(id int64) (*models.RequestEnvelope, error) {
	var env models.RequestEnvelope
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	err := r.db.Get(&env, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get request envelope", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &env, nil
}

func (r *requestRepository) FindRecentPending(kind models.RequestKind, requesterID, counterpartyID int64, targetAt *time.Time, since time.Time) (*models.RequestEnvelope, error) {
	var env models.RequestEnvelope
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE kind = $1 AND requester_id = $2 AND counterparty_id = $3
		  AND status = 'pending'
		  AND target_at IS NOT DISTINCT FROM $4
		  AND created_at > $5
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Get(&env, query, kind, requesterID, counterpartyID, targetAt, since)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to look up recent pending request", zap.Error(err))
		return nil, err
	}

	return &env, nil
}

func (r *requestRepository) List(filter RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	add := func(clause string, val any) {
		args = append(args, val)
		where += ` AND ` + fmt.Sprintf(clause, placeholder(len(args)))
	}

	if filter.Kind != "" {
		add(`kind = %s`, filter.Kind)
	}
	if filter.Status != "" {
		add(`status = %s`, filter.Status)
	}
	if filter.RequesterID != 0 {
		add(`requester_id = %s`, filter.RequesterID)
	}
	if filter.CounterpartyID != 0 {
		add(`counterparty_id = %s`, filter.CounterpartyID)
	}
	if filter.CrisisID != 0 {
		add(`crisis_id = %s`, filter.CrisisID)
	}
	if filter.ViewerID != 0 {
		add(`NOT (requester_id = %s AND hidden_by_requester)`, filter.ViewerID)
		add(`NOT (counterparty_id = %s AND hidden_by_counterparty)`, filter.ViewerID)
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM requests `+where, args...); err != nil {
		r.logger.Error("Failed to count requests", zap.Error(err))
		return nil, 0, err
	}

	envelopes := []*models.RequestEnvelope{}
	query := fmt.Sprintf(`
		SELECT %s FROM requests %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, requestColumns, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&envelopes, query, args...); err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, 0, err
	}

	return envelopes, total, nil
}

func (r *requestRepository) UpdateStatusCAS(id int64, expected, next models.RequestStatus) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`, next, id, expected)
	if err != nil {
		r.logger.Error("Failed to update request status", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *requestRepository) SetHidden(id, viewerID int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET hidden_by_requester = hidden_by_requester OR (requester_id = $2),
		    hidden_by_counterparty = hidden_by_counterparty OR (counterparty_id = $2),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND (requester_id = $2 OR counterparty_id = $2)
	`, id, viewerID)
	if err != nil {
		r.logger.Error("Failed to hide request", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *requestRepository) GetCooldownUntil(providerID int64) (*time.Time, error) {
	var until time.Time
	err := r.db.Get(&until, `SELECT until FROM provider_cooldowns WHERE provider_id = $1`, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get provider cooldown", zap.Int64("provider_id", providerID), zap.Error(err))
		return nil, err
	}

	return &until, nil
}

func (r *requestRepository) SetCooldownUntil(providerID int64, until time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO provider_cooldowns (provider_id, until)
		VALUES ($1, $2)
		ON CONFLICT (provider_id) DO UPDATE SET until = EXCLUDED.until
	`, providerID, until)
	if err != nil {
		r.logger.Error("Failed to set provider cooldown", zap.Int64("provider_id", providerID), zap.Error(err))
		return err
	}

	return nil
}
