package repository

import (
	"database/sql"
	"errors"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CrisisRepository defines storage operations for crisis records.
type CrisisRepository interface {
	Create(crisis *models.Crisis) error
	GetByID(id int64) (*models.Crisis, error)
	List(status models.CrisisStatus, page models.PageParams) ([]*models.Crisis, int, error)
	// UpdateStatusCAS moves the crisis from expected to next and reports
	// whether the row actually changed.
	UpdateStatusCAS(id int64, expected, next models.CrisisStatus) (bool, error)
}

type crisisRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCrisisRepository creates a new crisis repository.
func NewCrisisRepository(db *sqlx.DB, logger *zap.Logger) CrisisRepository {
	return &crisisRepository{db: db, logger: logger}
}

func (r *crisisRepository) Create(crisis *models.Crisis) error {
	query := `
		INSERT INTO crises (incident_id, title, description, status, center_lat, center_lng, radius_km, fund_goal, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, fund_raised, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		crisis.IncidentID,
		crisis.Title,
		crisis.Description,
		crisis.Status,
		crisis.CenterLat,
		crisis.CenterLng,
		crisis.RadiusKm,
		crisis.FundGoal,
		crisis.CreatedBy,
	).Scan(&crisis.ID, &crisis.FundRaised, &crisis.CreatedAt, &crisis.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to create crisis", zap.Error(err))
		return err
	}

	return nil
}

func (r *crisisRepository) GetByID(id int64) (*models.Crisis, error) {
	var crisis models.Crisis
	query := `
		SELECT id, incident_id, title, description, status, center_lat, center_lng, radius_km, fund_goal, fund_raised, created_by, created_at, updated_at
		FROM crises
		WHERE id = $1
	`

	err := r.db.Get(&crisis, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get crisis by ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &crisis, nil
}

func (r *crisisRepository) List(status models.CrisisStatus, page models.PageParams) ([]*models.Crisis, int, error) {
	where := ``
	args := []any{}
	if status != "" {
		where = `WHERE status = $1`
		args = append(args, status)
	}

	var total int
	countQuery := `SELECT COUNT(1) FROM crises ` + where
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		r.logger.Error("Failed to count crises", zap.Error(err))
		return nil, 0, err
	}

	crises := []*models.Crisis{}
	query := `
		SELECT id, incident_id, title, description, status, center_lat, center_lng, radius_km, fund_goal, fund_raised, created_by, created_at, updated_at
		FROM crises ` + where + `
		ORDER BY created_at DESC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&crises, query, args...); err != nil {
		r.logger.Error("Failed to list crises", zap.Error(err))
		return nil, 0, err
	}

	return crises, total, nil
}

func (r *crisisRepository) UpdateStatusCAS(id int64, expected, next models.CrisisStatus) (bool, error) {
	query := `
		UPDATE crises
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Exec(query, next, id, expected)
	if err != nil {
		r.logger.Error("Failed to update crisis status", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
