package service

import (
	"testing"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// newLedger builds a stateful inventory fake holding one provider's
// stock of a single resource type, mirroring the guarded SQL decrement.
func newLedger(quantity int) (*fakeInventoryRepo, *int) {
	stock := quantity
	var allocs []*models.Allocation
	nextID := int64(1)

	repo := &fakeInventoryRepo{}
	repo.allocate = func(alloc *models.Allocation) error {
		if alloc.Quantity > stock {
			return repository.ErrInsufficientStock
		}
		stock -= alloc.Quantity
		alloc.ID = nextID
		alloc.Status = models.AllocationAllocated
		nextID++
		allocs = append(allocs, alloc)
		return nil
	}
	repo.getAllocation = func(id int64) (*models.Allocation, error) {
		for _, a := range allocs {
			if a.ID == id {
				return a, nil
			}
		}
		return nil, nil
	}
	repo.revert = func(id int64) (*models.Allocation, error) {
		for _, a := range allocs {
			if a.ID == id {
				if a.Status != models.AllocationAllocated {
					return nil, repository.ErrAllocationNotAllocated
				}
				a.Status = models.AllocationReverted
				stock += a.Quantity
				return a, nil
			}
		}
		return nil, repository.ErrAllocationNotAllocated
	}
	return repo, &stock
}

func participatingProvider(providerID int64) *ParticipationService {
	participation := &fakeParticipationRepo{
		getParticipant: func(crisisID, userID int64) (*models.Participant, error) {
			if userID == providerID {
				return &models.Participant{CrisisID: crisisID, UserID: userID}, nil
			}
			return nil, nil
		},
	}
	return NewParticipationService(participation, activeCrisisRepo(), &fakeAuthRepo{}, &recorderStub{}, nil, zap.NewNop())
}

func TestAllocateDecrementsLedger(t *testing.T) {
	repo, stock := newLedger(20)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())
	provider := models.Actor{UserID: 3, Role: models.RoleBloodBank}

	alloc, err := s.Allocate(provider, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *stock != 15 {
		t.Fatalf("expected ledger at 15, got %d", *stock)
	}
	if alloc.Status != models.AllocationAllocated {
		t.Fatalf("expected allocated status, got %s", alloc.Status)
	}
}

func TestAllocateInsufficientStock(t *testing.T) {
	repo, stock := newLedger(4)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())
	provider := models.Actor{UserID: 3, Role: models.RoleBloodBank}

	_, err := s.Allocate(provider, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if !apierr.Is(err, apierr.CodeInsufficientInventory) {
		t.Fatalf("expected insufficient_inventory, got %v", err)
	}
	if *stock != 4 {
		t.Fatalf("ledger must be untouched on failure, got %d", *stock)
	}
}

func TestAllocateRequiresParticipation(t *testing.T) {
	repo, _ := newLedger(20)
	// Provider 3 holds no participant row anywhere.
	participation := NewParticipationService(&fakeParticipationRepo{}, activeCrisisRepo(), &fakeAuthRepo{}, &recorderStub{}, nil, zap.NewNop())
	s := NewInventoryService(repo, participation, &recorderStub{}, zap.NewNop())
	provider := models.Actor{UserID: 3, Role: models.RoleBloodBank}

	_, err := s.Allocate(provider, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden for non-participant, got %v", err)
	}
}

func TestAllocateOnTerminalCrisis(t *testing.T) {
	repo, stock := newLedger(20)
	participation := NewParticipationService(&fakeParticipationRepo{
		getParticipant: func(crisisID, userID int64) (*models.Participant, error) {
			return &models.Participant{CrisisID: crisisID, UserID: userID}, nil
		},
	}, closedCrisisRepo(), &fakeAuthRepo{}, &recorderStub{}, nil, zap.NewNop())
	s := NewInventoryService(repo, participation, &recorderStub{}, zap.NewNop())

	_, err := s.Allocate(models.Actor{UserID: 3, Role: models.RoleBloodBank}, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable for closed crisis, got %v", err)
	}
	if *stock != 20 {
		t.Fatalf("ledger must be untouched, got %d", *stock)
	}
}

func TestAllocateForbiddenForOtherProvider(t *testing.T) {
	repo, _ := newLedger(20)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())

	_, err := s.Allocate(models.Actor{UserID: 9, Role: models.RoleBloodBank}, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRevertRestoresLedgerExactlyOnce(t *testing.T) {
	repo, stock := newLedger(20)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())
	provider := models.Actor{UserID: 3, Role: models.RoleBloodBank}

	alloc, err := s.Allocate(provider, models.AllocateInput{
		CrisisID:     1,
		ProviderID:   3,
		ResourceType: "O+",
		Quantity:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reverted, err := s.Revert(provider, alloc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reverted.Status != models.AllocationReverted {
		t.Fatalf("expected reverted status, got %s", reverted.Status)
	}
	if *stock != 20 {
		t.Fatalf("expected ledger restored to 20, got %d", *stock)
	}

	// A second revert must not double-credit.
	if _, err := s.Revert(provider, alloc.ID); !apierr.Is(err, apierr.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status on double revert, got %v", err)
	}
	if *stock != 20 {
		t.Fatalf("ledger double-credited to %d", *stock)
	}
}

func TestSetLevelRejectsNegativeQuantity(t *testing.T) {
	repo, _ := newLedger(0)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())

	_, err := s.SetLevel(models.Actor{UserID: 3, Role: models.RoleBloodBank}, 3, models.SetInventoryInput{
		ResourceType: "O+",
		Quantity:     -1,
	})
	if !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetLevelForbiddenForOthers(t *testing.T) {
	repo, _ := newLedger(0)
	s := NewInventoryService(repo, participatingProvider(3), &recorderStub{}, zap.NewNop())

	_, err := s.SetLevel(models.Actor{UserID: 9, Role: models.RoleBloodBank}, 3, models.SetInventoryInput{
		ResourceType: "O+",
		Quantity:     10,
	})
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
