package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ParticipationRepository defines storage operations for crisis
// membership: participants, participation requests, and invitations.
type ParticipationRepository interface {
	// Participants
	AddParticipant(p *models.Participant) error
	GetParticipant(crisisID, userID int64) (*models.Participant, error)
	ListParticipants(crisisID int64, page models.PageParams) ([]*models.Participant, int, error)
	RemoveParticipant(crisisID, userID int64) (bool, error)
	// Leave removes the caller's participant row and, when present,
	// their victim row for the same crisis in one transaction.
	Leave(crisisID, userID int64) (bool, error)

	// Participation requests
	CreateRequestIfAbsent(req *models.ParticipationRequest) (created bool, err error)
	GetRequest(id int64) (*models.ParticipationRequest, error)
	ListRequests(crisisID int64, status models.ParticipationRequestStatus, page models.PageParams) ([]*models.ParticipationRequest, int, error)
	// ApproveRequest flips the pending request to approved and inserts
	// the participant row atomically.
	ApproveRequest(req *models.ParticipationRequest) (bool, error)
	RejectRequest(id int64) (bool, error)

	// Invitations
	CreateInvitation(inv *models.Invitation) error
	GetInvitation(id int64) (*models.Invitation, error)
	ListInvitations(crisisID int64, orgUserID int64, page models.PageParams) ([]*models.Invitation, int, error)
	// AcceptInvitation flips the pending invitation to accepted and
	// inserts the participant row atomically.
	AcceptInvitation(inv *models.Invitation, roleLabel string) (bool, error)
	DeclineInvitation(id int64) (bool, error)
	DeletePendingInvitation(id int64) (bool, error)
}

type participationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewParticipationRepository creates a new participation repository.
func NewParticipationRepository(db *sqlx.DB, logger *zap.Logger) ParticipationRepository {
	return &participationRepository{db: db, logger: logger}
}

func (r *participationRepository) AddParticipant(p *models.Participant) error {
	query := `
		INSERT INTO participants (crisis_id, user_id, role_label)
		VALUES ($1, $2, $3)
		ON CONFLICT (crisis_id, user_id) DO NOTHING
		RETURNING id, joined_at
	`

	err := r.db.QueryRow(query, p.CrisisID, p.UserID, p.RoleLabel).Scan(&p.ID, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Already a participant; surface the existing row instead.
		existing, getErr := r.GetParticipant(p.CrisisID, p.UserID)
		if getErr != nil {
			return getErr
		}
		if existing != nil {
			*p = *existing
		}
		return nil
	}
	if err != nil {
		r.logger.Error("Failed to add participant", zap.Error(err))
		return err
	}

	return nil
}

func (r *participationRepository) GetParticipant(crisisID, userID int64) (*models.Participant, error) {
	var p models.Participant
	query := `
		SELECT id, crisis_id, user_id, role_label, joined_at
		FROM participants
		WHERE crisis_id = $1 AND user_id = $2
	`

	err := r.db.Get(&p, query, crisisID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get participant", zap.Int64("crisis_id", crisisID), zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &p, nil
}

func (r *participationRepository) ListParticipants(crisisID int64, page models.PageParams) ([]*models.Participant, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM participants WHERE crisis_id = $1`, crisisID); err != nil {
		r.logger.Error("Failed to count participants", zap.Error(err))
		return nil, 0, err
	}

	participants := []*models.Participant{}
	query := `
		SELECT id, crisis_id, user_id, role_label, joined_at
		FROM participants
		WHERE crisis_id = $1
		ORDER BY joined_at DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.Select(&participants, query, crisisID, page.PageSize, page.Offset()); err != nil {
		r.logger.Error("Failed to list participants", zap.Error(err))
		return nil, 0, err
	}

	return participants, total, nil
}

func (r *participationRepository) RemoveParticipant(crisisID, userID int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM participants WHERE crisis_id = $1 AND user_id = $2`, crisisID, userID)
	if err != nil {
		r.logger.Error("Failed to remove participant", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *participationRepository) Leave(crisisID, userID int64) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM participants WHERE crisis_id = $1 AND user_id = $2`, crisisID, userID)
	if err != nil {
		r.logger.Error("Failed to delete participant on leave", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// No membership; the rollback leaves any victim record alone.
		return false, nil
	}

	if _, err := tx.Exec(`DELETE FROM victims WHERE crisis_id = $1 AND user_id = $2`, crisisID, userID); err != nil {
		r.logger.Error("Failed to delete victim record on leave", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}

func (r *participationRepository) CreateRequestIfAbsent(req *models.ParticipationRequest) (bool, error) {
	// The partial unique index on (crisis_id, user_id) WHERE status =
	// 'pending' makes the insert race-safe; ON CONFLICT turns the
	// duplicate into a no-op detected by the missing RETURNING row.
	query := `
		INSERT INTO participation_requests (crisis_id, user_id, role_label, note, status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (crisis_id, user_id) WHERE status = 'pending' DO NOTHING
		RETURNING id, status, created_at, updated_at
	`

	err := r.db.QueryRow(query, req.CrisisID, req.UserID, req.RoleLabel, req.Note).
		Scan(&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to create participation request", zap.Error(err))
		return false, err
	}

	return true, nil
}

func (r *participationRepository) GetRequest(id int64) (*models.ParticipationRequest, error) {
	var req models.ParticipationRequest
	query := `
		SELECT id, crisis_id, user_id, role_label, note, status, created_at, updated_at
		FROM participation_requests
		WHERE id = $1
	`

	err := r.db.Get(&req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get participation request", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &req, nil
}

func (r *participationRepository) ListRequests(crisisID int64, status models.ParticipationRequestStatus, page models.PageParams) ([]*models.ParticipationRequest, int, error) {
	where := `WHERE crisis_id = $1`
	args := []any{crisisID}
	if status != "" {
		args = append(args, status)
		where += ` AND status = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM participation_requests `+where, args...); err != nil {
		r.logger.Error("Failed to count participation requests", zap.Error(err))
		return nil, 0, err
	}

	requests := []*models.ParticipationRequest{}
	query := fmt.Sprintf(`
		SELECT id, crisis_id, user_id, role_label, note, status, created_at, updated_at
		FROM participation_requests %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&requests, query, args...); err != nil {
		r.logger.Error("Failed to list participation requests", zap.Error(err))
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *participationRepository) ApproveRequest(req *models.ParticipationRequest) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE participation_requests
		SET status = 'approved', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`, req.ID)
	if err != nil {
		r.logger.Error("Failed to approve participation request", zap.Int64("id", req.ID), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO participants (crisis_id, user_id, role_label)
		VALUES ($1, $2, $3)
		ON CONFLICT (crisis_id, user_id) DO NOTHING
	`, req.CrisisID, req.UserID, req.RoleLabel); err != nil {
		r.logger.Error("Failed to insert participant on approve", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}

func (r *participationRepository) RejectRequest(id int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE participation_requests
		SET status = 'rejected', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		r.logger.Error("Failed to reject participation request", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *participationRepository) CreateInvitation(inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (crisis_id, org_user_id, org_type, status, invited_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(query, inv.CrisisID, inv.OrgUserID, inv.OrgType, inv.Status, inv.InvitedBy).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create invitation", zap.Error(err))
		return err
	}

	return nil
}

func (r *participationRepository) GetInvitation(id int64) (*models.Invitation, error) {
	var inv models.Invitation
	query := `
		SELECT id, crisis_id, org_user_id, org_type, status, invited_by, created_at, updated_at
		FROM invitations
		WHERE id = $1
	`

	err := r.db.Get(&inv, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get invitation", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &inv, nil
}

func (r *participationRepository) ListInvitations(crisisID int64, orgUserID int64, page models.PageParams) ([]*models.Invitation, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if crisisID != 0 {
		args = append(args, crisisID)
		where += ` AND crisis_id = ` + placeholder(len(args))
	}
	if orgUserID != 0 {
		args = append(args, orgUserID)
		where += ` AND org_user_id = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM invitations `+where, args...); err != nil {
		r.logger.Error("Failed to count invitations", zap.Error(err))
		return nil, 0, err
	}

	invitations := []*models.Invitation{}
	query := fmt.Sprintf(`
		SELECT id, crisis_id, org_user_id, org_type, status, invited_by, created_at, updated_at
		FROM invitations %s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s
	`, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&invitations, query, args...); err != nil {
		r.logger.Error("Failed to list invitations", zap.Error(err))
		return nil, 0, err
	}

	return invitations, total, nil
}

func (r *participationRepository) AcceptInvitation(inv *models.Invitation, roleLabel string) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE invitations
		SET status = 'accepted', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`, inv.ID)
	if err != nil {
		r.logger.Error("Failed to accept invitation", zap.Int64("id", inv.ID), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO participants (crisis_id, user_id, role_label)
		VALUES ($1, $2, $3)
		ON CONFLICT (crisis_id, user_id) DO NOTHING
	`, inv.CrisisID, inv.OrgUserID, roleLabel); err != nil {
		r.logger.Error("Failed to insert participant on invitation accept", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}

func (r *participationRepository) DeclineInvitation(id int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE invitations
		SET status = 'declined', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		r.logger.Error("Failed to decline invitation", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *participationRepository) DeletePendingInvitation(id int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM invitations WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		r.logger.Error("Failed to delete invitation", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
