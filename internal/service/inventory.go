package service

import (
	"errors"
	"fmt"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// InventoryService fronts the blood-inventory ledger. Allocate and
// revert are exact inverses; the repository performs both as single
// atomic check-and-write transactions.
type InventoryService struct {
	inventory     repository.InventoryRepository
	participation *ParticipationService
	recorder      Recorder
	logger        *zap.Logger
}

func NewInventoryService(
	inventory repository.InventoryRepository,
	participation *ParticipationService,
	recorder Recorder,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		inventory:     inventory,
		participation: participation,
		recorder:      recorder,
		logger:        logger,
	}
}

// SetLevel upserts a provider's stock for one resource type. Providers
// manage their own shelves; admins may correct any ledger.
func (s *InventoryService) SetLevel(actor models.Actor, providerID int64, input models.SetInventoryInput) (*models.InventoryLevel, error) {
	if !actor.IsAdmin && actor.UserID != providerID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if input.Quantity < 0 {
		return nil, apierr.Newf(apierr.CodeValidation, "quantity must not be negative")
	}

	level := &models.InventoryLevel{
		ProviderID:   providerID,
		ResourceType: input.ResourceType,
		Quantity:     input.Quantity,
	}
	if err := s.inventory.SetLevel(level); err != nil {
		return nil, fmt.Errorf("set inventory level: %w", err)
	}

	s.recorder.Record(actor, "inventory.level_set", "provider", providerID, input.ResourceType)
	return level, nil
}

func (s *InventoryService) ListLevels(providerID int64) ([]*models.InventoryLevel, error) {
	levels, err := s.inventory.ListLevels(providerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory levels: %w", err)
	}
	return levels, nil
}

// Allocate draws stock against a provider for a crisis. The caller must
// be an admin or the provider itself, the crisis must still be open,
// and the provider must hold active participation in it.
func (s *InventoryService) Allocate(actor models.Actor, input models.AllocateInput) (*models.Allocation, error) {
	if !actor.IsAdmin && actor.UserID != input.ProviderID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if _, err := s.participation.activeCrisis(input.CrisisID); err != nil {
		return nil, err
	}
	if err := s.participation.Authorize(actor, input.CrisisID); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, apierr.Newf(apierr.CodeValidation, "quantity must be positive")
	}

	alloc := &models.Allocation{
		CrisisID:     input.CrisisID,
		ProviderID:   input.ProviderID,
		ResourceType: input.ResourceType,
		Quantity:     input.Quantity,
		Purpose:      input.Purpose,
		AllocatedBy:  actor.UserID,
	}
	if err := s.inventory.Allocate(alloc); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, apierr.New(apierr.CodeInsufficientInventory)
		}
		return nil, fmt.Errorf("allocate: %w", err)
	}

	s.recorder.Record(actor, "inventory.allocated", "allocation", alloc.ID,
		fmt.Sprintf("%d x %s", alloc.Quantity, alloc.ResourceType))
	return alloc, nil
}

func (s *InventoryService) GetAllocation(id int64) (*models.Allocation, error) {
	alloc, err := s.inventory.GetAllocation(id)
	if err != nil {
		return nil, fmt.Errorf("get allocation: %w", err)
	}
	if alloc == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	return alloc, nil
}

func (s *InventoryService) ListAllocations(crisisID, providerID int64, page models.PageParams) ([]*models.Allocation, models.PageMeta, error) {
	page = page.Normalize()
	allocations, total, err := s.inventory.ListAllocations(crisisID, providerID, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, models.NewPageMeta(page, total), nil
}

// Revert undoes an in-effect allocation, crediting the ledger back. A
// second revert fails with invalid_status rather than double-crediting.
func (s *InventoryService) Revert(actor models.Actor, id int64) (*models.Allocation, error) {
	alloc, err := s.GetAllocation(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != alloc.ProviderID {
		return nil, apierr.New(apierr.CodeForbidden)
	}

	reverted, err := s.inventory.Revert(id)
	if err != nil {
		if errors.Is(err, repository.ErrAllocationNotAllocated) {
			return nil, apierr.New(apierr.CodeInvalidStatus)
		}
		return nil, fmt.Errorf("revert allocation: %w", err)
	}

	s.recorder.Record(actor, "inventory.reverted", "allocation", id, reverted.ResourceType)
	return reverted, nil
}

// Delete removes the allocation record. If still allocated it reverts
// first, so the net ledger state equals the pre-allocation state.
func (s *InventoryService) Delete(actor models.Actor, id int64) error {
	alloc, err := s.GetAllocation(id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && actor.UserID != alloc.ProviderID {
		return apierr.New(apierr.CodeForbidden)
	}

	deleted, err := s.inventory.Delete(id)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	if !deleted {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "inventory.allocation_deleted", "allocation", id, alloc.ResourceType)
	return nil
}
