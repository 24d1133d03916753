package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// VictimRepository defines storage operations for victim records and
// the location snapshots the geofence detector reads.
type VictimRepository interface {
	// CreateIfAbsent enrolls a user; the unique (crisis_id, user_id)
	// index turns a repeat enrollment into a no-op.
	CreateIfAbsent(v *models.Victim) (created bool, err error)
	GetByID(id int64) (*models.Victim, error)
	GetByCrisisAndUser(crisisID, userID int64) (*models.Victim, error)
	List(crisisID int64, status models.VictimStatus, page models.PageParams) ([]*models.Victim, int, error)
	UpdateStatus(id int64, status models.VictimStatus) (bool, error)
	UpdateNote(id int64, note string) (bool, error)
	Delete(id int64) (bool, error)
	DeleteByCrisisAndUser(crisisID, userID int64) (bool, error)

	// Locations
	UpsertLocation(loc *models.UserLocation) error
	GetLocation(userID int64) (*models.UserLocation, error)
	// ListCandidateLocations returns every user's latest location joined
	// with identity fields, for geofence evaluation.
	ListCandidateLocations() ([]*models.PotentialVictim, error)
}

type victimRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewVictimRepository creates a new victim repository.
func NewVictimRepository(db *sqlx.DB, logger *zap.Logger) VictimRepository {
	return &victimRepository{db: db, logger: logger}
}

func (r *victimRepository) CreateIfAbsent(v *models.Victim) (bool, error) {
	query := `
		INSERT INTO victims (crisis_id, user_id, status, note, last_lat, last_lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (crisis_id, user_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(query, v.CrisisID, v.UserID, v.Status, v.Note, v.LastLat, v.LastLng).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to create victim record", zap.Error(err))
		return false, err
	}

	return true, nil
}

func (r *victimRepository) GetByID(id int64) (*models.Victim, error) {
	var v models.Victim
	query := `
		SELECT id, crisis_id, user_id, status, note, last_lat, last_lng, created_at, updated_at
		FROM victims
		WHERE id = $1
	`

	err := r.db.Get(&v, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get victim by ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &v, nil
}

func (r *victimRepository) GetByCrisisAndUser(crisisID, userID int64) (*models.Victim, error) {
	var v models.Victim
	query := `
		SELECT id, crisis_id, user_id, status, note, last_lat, last_lng, created_at, updated_at
		FROM victims
		WHERE crisis_id = $1 AND user_id = $2
	`

	err := r.db.Get(&v, query, crisisID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get victim", zap.Int64("crisis_id", crisisID), zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &v, nil
}

func (r *victimRepository) List(crisisID int64, status models.VictimStatus, page models.PageParams) ([]*models.Victim, int, error) {
	where := `WHERE crisis_id = $1`
	args := []any{crisisID}
	if status != "" {
		args = append(args, status)
		where += ` AND status = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM victims `+where, args...); err != nil {
		r.logger.Error("Failed to count victims", zap.Error(err))
		return nil, 0, err
	}

	victims := []*models.Victim{}
	query := fmt.Sprintf(`
		SELECT id, crisis_id, user_id, status, note, last_lat, last_lng, created_at, updated_at
		FROM victims %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&victims, query, args...); err != nil {
		r.logger.Error("Failed to list victims", zap.Error(err))
		return nil, 0, err
	}

	return victims, total, nil
}

func (r *victimRepository) UpdateStatus(id int64, status models.VictimStatus) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE victims
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, status, id)
	if err != nil {
		r.logger.Error("Failed to update victim status", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *victimRepository) UpdateNote(id int64, note string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE victims
		SET note = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, note, id)
	if err != nil {
		r.logger.Error("Failed to update victim note", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *victimRepository) Delete(id int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM victims WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete victim", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *victimRepository) DeleteByCrisisAndUser(crisisID, userID int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM victims WHERE crisis_id = $1 AND user_id = $2`, crisisID, userID)
	if err != nil {
		r.logger.Error("Failed to delete victim by crisis and user", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *victimRepository) UpsertLocation(loc *models.UserLocation) error {
	query := `
		INSERT INTO user_locations (user_id, latitude, longitude, recorded_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, recorded_at = CURRENT_TIMESTAMP
		RETURNING recorded_at
	`

	err := r.db.QueryRow(query, loc.UserID, loc.Latitude, loc.Longitude).Scan(&loc.RecordedAt)
	if err != nil {
		r.logger.Error("Failed to upsert location", zap.Int64("user_id", loc.UserID), zap.Error(err))
		return err
	}

	return nil
}

func (r *victimRepository) GetLocation(userID int64) (*models.UserLocation, error) {
	var loc models.UserLocation
	query := `SELECT user_id, latitude, longitude, recorded_at FROM user_locations WHERE user_id = $1`

	err := r.db.Get(&loc, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get location", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &loc, nil
}

func (r *victimRepository) ListCandidateLocations() ([]*models.PotentialVictim, error) {
	candidates := []*models.PotentialVictim{}
	query := `
		SELECT l.user_id, u.email, u.full_name, l.latitude, l.longitude, l.recorded_at
		FROM user_locations l
		JOIN users u ON u.id = l.user_id
	`

	if err := r.db.Select(&candidates, query); err != nil {
		r.logger.Error("Failed to list candidate locations", zap.Error(err))
		return nil, err
	}

	return candidates, nil
}
