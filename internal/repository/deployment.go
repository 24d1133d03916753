package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DeploymentRepository defines storage operations for deployment
// records and the directory lookups that validate deployable units.
type DeploymentRepository interface {
	Create(d *models.Deployment) error
	GetByID(id int64) (*models.Deployment, error)
	List(incidentID int64, status models.DeploymentStatus, page models.PageParams) ([]*models.Deployment, int, error)
	// UpdateStatusCAS moves the deployment from expected to next and
	// reports whether the row actually changed.
	UpdateStatusCAS(id int64, expected, next models.DeploymentStatus) (bool, error)

	// Organization directory (counterparty validation only)
	GetTeam(id int64) (*models.Team, error)
	GetVolunteerGroup(id int64) (*models.VolunteerGroup, error)
}

type deploymentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(db *sqlx.DB, logger *zap.Logger) DeploymentRepository {
	return &deploymentRepository{db: db, logger: logger}
}

func (r *deploymentRepository) Create(d *models.Deployment) error {
	query := `
		INSERT INTO deployments (incident_id, unit_kind, unit_id, headcount, note, status, deployed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(query, d.IncidentID, d.UnitKind, d.UnitID, d.Headcount, d.Note, d.Status, d.DeployedBy).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create deployment", zap.Error(err))
		return err
	}

	return nil
}

func (r *deploymentRepository) GetByID(id int64) (*models.Deployment, error) {
	var d models.Deployment
	query := `
		SELECT id, incident_id, unit_kind, unit_id, headcount, note, status, deployed_by, created_at, updated_at
		FROM deployments
		WHERE id = $1
	`

	err := r.db.Get(&d, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get deployment", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &d, nil
}

func (r *deploymentRepository) List(incidentID int64, status models.DeploymentStatus, page models.PageParams) ([]*models.Deployment, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if incidentID != 0 {
		args = append(args, incidentID)
		where += ` AND incident_id = ` + placeholder(len(args))
	}
	if status != "" {
		args = append(args, status)
		where += ` AND status = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM deployments `+where, args...); err != nil {
		r.logger.Error("Failed to count deployments", zap.Error(err))
		return nil, 0, err
	}

	deployments := []*models.Deployment{}
	query := fmt.Sprintf(`
		SELECT id, incident_id, unit_kind, unit_id, headcount, note, status, deployed_by, created_at, updated_at
		FROM deployments %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&deployments, query, args...); err != nil {
		r.logger.Error("Failed to list deployments", zap.Error(err))
		return nil, 0, err
	}

	return deployments, total, nil
}

func (r *deploymentRepository) UpdateStatusCAS(id int64, expected, next models.DeploymentStatus) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE deployments
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`, next, id, expected)
	if err != nil {
		r.logger.Error("Failed to update deployment status", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *deploymentRepository) GetTeam(id int64) (*models.Team, error) {
	var team models.Team
	query := `SELECT id, owner_id, name, headcount, status FROM teams WHERE id = $1`

	err := r.db.Get(&team, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get team", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &team, nil
}

func (r *deploymentRepository) GetVolunteerGroup(id int64) (*models.VolunteerGroup, error) {
	var group models.VolunteerGroup
	query := `SELECT id, owner_id, name, members, status FROM volunteer_groups WHERE id = $1`

	err := r.db.Get(&group, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get volunteer group", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &group, nil
}
