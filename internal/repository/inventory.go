package repository

import (
	"database/sql"
	"errors"

	"crisisintel/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrInsufficientStock is returned when an allocation would drive the
// ledger below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrAllocationNotAllocated is returned when a revert targets an
// allocation that is no longer in effect.
var ErrAllocationNotAllocated = errors.New("allocation not in allocated state")

// InventoryRepository defines storage operations for the finite-stock
// ledger and its allocation records. Every ledger mutation is a single
// atomic check-and-write.
type InventoryRepository interface {
	GetLevel(providerID int64, resourceType string) (*models.InventoryLevel, error)
	ListLevels(providerID int64) ([]*models.InventoryLevel, error)
	SetLevel(level *models.InventoryLevel) error

	// Allocate decrements the ledger and inserts the allocation record
	// in one transaction; the decrement is guarded so concurrent
	// allocations can never jointly overdraw.
	Allocate(alloc *models.Allocation) error
	GetAllocation(id int64) (*models.Allocation, error)
	ListAllocations(crisisID, providerID int64, page models.PageParams) ([]*models.Allocation, int, error)
	// Revert credits the ledger back and flips the allocation to
	// reverted; a second revert returns ErrAllocationNotAllocated.
	Revert(id int64) (*models.Allocation, error)
	// Delete removes the record, first reverting it if still allocated,
	// leaving the ledger at its pre-allocation value.
	Delete(id int64) (bool, error)
}

type inventoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *sqlx.DB, logger *zap.Logger) InventoryRepository {
	return &inventoryRepository{db: db, logger: logger}
}

func (r *inventoryRepository) GetLevel(providerID int64, resourceType string) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	query := `
		SELECT provider_id, resource_type, quantity, updated_at
		FROM inventory_levels
		WHERE provider_id = $1 AND resource_type = $2
	`

	err := r.db.Get(&level, query, providerID, resourceType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get inventory level", zap.Int64("provider_id", providerID), zap.Error(err))
		return nil, err
	}

	return &level, nil
}

func (r *inventoryRepository) ListLevels(providerID int64) ([]*models.InventoryLevel, error) {
	levels := []*models.InventoryLevel{}
	query := `
		SELECT provider_id, resource_type, quantity, updated_at
		FROM inventory_levels
		WHERE provider_id = $1
		ORDER BY resource_type
	`

	if err := r.db.Select(&levels, query, providerID); err != nil {
		r.logger.Error("Failed to list inventory levels", zap.Int64("provider_id", providerID), zap.Error(err))
		return nil, err
	}

	return levels, nil
}

func (r *inventoryRepository) SetLevel(level *models.InventoryLevel) error {
	query := `
		INSERT INTO inventory_levels (provider_id, resource_type, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, resource_type) DO UPDATE
		SET quantity = EXCLUDED.quantity, updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at
	`

	err := r.db.QueryRow(query, level.ProviderID, level.ResourceType, level.Quantity).Scan(&level.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to set inventory level", zap.Int64("provider_id", level.ProviderID), zap.Error(err))
		return err
	}

	return nil
}

func (r *inventoryRepository) Allocate(alloc *models.Allocation) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Atomic check-and-decrement: the WHERE quantity >= $1 guard makes
	// two racing allocations serialize on the row lock, and the loser
	// sees zero rows affected instead of a negative ledger.
	result, err := tx.Exec(`
		UPDATE inventory_levels
		SET quantity = quantity - $1, updated_at = CURRENT_TIMESTAMP
		WHERE provider_id = $2 AND resource_type = $3 AND quantity >= $1
	`, alloc.Quantity, alloc.ProviderID, alloc.ResourceType)
	if err != nil {
		r.logger.Error("Failed to decrement inventory", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientStock
	}

	err = tx.QueryRow(`
		INSERT INTO allocations (crisis_id, provider_id, resource_type, quantity, status, purpose, allocated_by)
		VALUES ($1, $2, $3, $4, 'allocated', $5, $6)
		RETURNING id, status, created_at, updated_at
	`, alloc.CrisisID, alloc.ProviderID, alloc.ResourceType, alloc.Quantity, alloc.Purpose, alloc.AllocatedBy).
		Scan(&alloc.ID, &alloc.Status, &alloc.CreatedAt, &alloc.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert allocation", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *inventoryRepository) GetAllocation(id int64) (*models.Allocation, error) {
	var alloc models.Allocation
	query := `
		SELECT id, crisis_id, provider_id, resource_type, quantity, status, purpose, allocated_by, created_at, updated_at
		FROM allocations
		WHERE id = $1
	`

	err := r.db.Get(&alloc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get allocation", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &alloc, nil
}

func (r *inventoryRepository) ListAllocations(crisisID, providerID int64, page models.PageParams) ([]*models.Allocation, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if crisisID != 0 {
		args = append(args, crisisID)
		where += ` AND crisis_id = ` + placeholder(len(args))
	}
	if providerID != 0 {
		args = append(args, providerID)
		where += ` AND provider_id = ` + placeholder(len(args))
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(1) FROM allocations `+where, args...); err != nil {
		r.logger.Error("Failed to count allocations", zap.Error(err))
		return nil, 0, err
	}

	allocations := []*models.Allocation{}
	query := `
		SELECT id, crisis_id, provider_id, resource_type, quantity, status, purpose, allocated_by, created_at, updated_at
		FROM allocations ` + where + `
		ORDER BY created_at DESC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	if err := r.db.Select(&allocations, query, args...); err != nil {
		r.logger.Error("Failed to list allocations", zap.Error(err))
		return nil, 0, err
	}

	return allocations, total, nil
}

func (r *inventoryRepository) Revert(id int64) (*models.Allocation, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	alloc, err := r.revertTx(tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return alloc, nil
}

// revertTx flips the allocation to reverted via CAS and credits the
// ledger back inside the caller's transaction.
func (r *inventoryRepository) revertTx(tx *sqlx.Tx, id int64) (*models.Allocation, error) {
	var alloc models.Allocation
	err := tx.Get(&alloc, `
		UPDATE allocations
		SET status = 'reverted', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'allocated'
		RETURNING id, crisis_id, provider_id, resource_type, quantity, status, purpose, allocated_by, created_at, updated_at
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAllocationNotAllocated
		}
		r.logger.Error("Failed to revert allocation", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE inventory_levels
		SET quantity = quantity + $1, updated_at = CURRENT_TIMESTAMP
		WHERE provider_id = $2 AND resource_type = $3
	`, alloc.Quantity, alloc.ProviderID, alloc.ResourceType)
	if err != nil {
		r.logger.Error("Failed to credit inventory on revert", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &alloc, nil
}

func (r *inventoryRepository) Delete(id int64) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	_, err = r.revertTx(tx, id)
	if err != nil && !errors.Is(err, ErrAllocationNotAllocated) {
		return false, err
	}

	result, err := tx.Exec(`DELETE FROM allocations WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete allocation", zap.Int64("id", id), zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return rows > 0, nil
}
