package service

import (
	"testing"
	"time"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newRequestService(requests *fakeRequestRepo, users *fakeAuthRepo, rec *recorderStub) *RequestService {
	participation := NewParticipationService(&fakeParticipationRepo{}, &fakeCrisisRepo{}, users, rec, nil, zap.NewNop())
	s := NewRequestService(requests, users, participation, rec, zap.NewNop())
	s.clock = func() time.Time { return testNow }
	return s
}

func bloodBankUser(id int64) *fakeAuthRepo {
	return &fakeAuthRepo{
		getUserByID: func(userID int64) (*models.User, error) {
			if userID == id {
				return &models.User{ID: id, Role: models.RoleBloodBank}, nil
			}
			return nil, nil
		},
	}
}

func TestCreateInventoryRequestMissingPayload(t *testing.T) {
	s := newRequestService(&fakeRequestRepo{}, bloodBankUser(2), &recorderStub{})

	_, _, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestInventory,
		CounterpartyID: 2,
	})
	if !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRequestWrongCounterpartyRole(t *testing.T) {
	users := &fakeAuthRepo{
		getUserByID: func(int64) (*models.User, error) {
			return &models.User{ID: 2, Role: models.RoleHospital}, nil
		},
	}
	s := newRequestService(&fakeRequestRepo{}, users, &recorderStub{})

	_, _, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestInventory,
		CounterpartyID: 2,
		BloodType:      "O+",
		Quantity:       3,
	})
	if !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error for role mismatch, got %v", err)
	}
}

func TestCreateRequestDeduplicates(t *testing.T) {
	existing := &models.RequestEnvelope{ID: 7, Kind: models.RequestInventory, Status: models.RequestPending}
	requests := &fakeRequestRepo{
		findRecentPending: func(models.RequestKind, int64, int64, *time.Time, time.Time) (*models.RequestEnvelope, error) {
			return existing, nil
		},
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	env, duplicate, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestInventory,
		CounterpartyID: 2,
		BloodType:      "O+",
		Quantity:       3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !duplicate {
		t.Fatal("expected duplicate indicator")
	}
	if env.ID != existing.ID {
		t.Fatalf("expected the original envelope, got id %d", env.ID)
	}
}

func TestCreateRequestDedupeCutoffUsesClock(t *testing.T) {
	var seenSince time.Time
	requests := &fakeRequestRepo{
		findRecentPending: func(_ models.RequestKind, _, _ int64, _ *time.Time, since time.Time) (*models.RequestEnvelope, error) {
			seenSince = since
			return nil, nil
		},
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	_, _, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestInventory,
		CounterpartyID: 2,
		BloodType:      "O+",
		Quantity:       3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := testNow.Add(-10 * time.Minute); !seenSince.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, seenSince)
	}
}

func TestCreateRequestOnTerminalCrisis(t *testing.T) {
	participation := NewParticipationService(&fakeParticipationRepo{}, closedCrisisRepo(), bloodBankUser(2), &recorderStub{}, nil, zap.NewNop())
	s := NewRequestService(&fakeRequestRepo{}, bloodBankUser(2), participation, &recorderStub{}, zap.NewNop())
	s.clock = func() time.Time { return testNow }

	crisisID := int64(1)
	_, _, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestInventory,
		CounterpartyID: 2,
		CrisisID:       &crisisID,
		BloodType:      "O+",
		Quantity:       3,
	})
	if !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable for closed crisis, got %v", err)
	}
}

func TestCreateMeetingDuringCooldown(t *testing.T) {
	until := testNow.Add(48 * time.Hour)
	requests := &fakeRequestRepo{
		getCooldownUntil: func(int64) (*time.Time, error) { return &until, nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	target := testNow.Add(24 * time.Hour)
	_, _, err := s.Create(models.Actor{UserID: 1, Role: models.RoleIndividual}, models.CreateRequestInput{
		Kind:           models.RequestMeeting,
		CounterpartyID: 2,
		TargetAt:       &target,
	})
	if !apierr.Is(err, apierr.CodeCooldownActive) {
		t.Fatalf("expected cooldown_active, got %v", err)
	}
}

func pendingEnvelope(id int64) *models.RequestEnvelope {
	return &models.RequestEnvelope{
		ID:             id,
		Kind:           models.RequestInventory,
		RequesterID:    1,
		CounterpartyID: 2,
		Status:         models.RequestPending,
	}
}

func TestAcceptByCounterparty(t *testing.T) {
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return pendingEnvelope(5), nil },
	}
	rec := &recorderStub{}
	s := newRequestService(requests, bloodBankUser(2), rec)

	env, err := s.Accept(models.Actor{UserID: 2, Role: models.RoleBloodBank}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Status != models.RequestAccepted {
		t.Fatalf("expected accepted, got %s", env.Status)
	}
	if len(rec.actions) == 0 || rec.actions[len(rec.actions)-1] != "request.accepted" {
		t.Fatalf("expected request.accepted recorded, got %v", rec.actions)
	}
}

func TestAcceptForbiddenForRequester(t *testing.T) {
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return pendingEnvelope(5), nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if _, err := s.Accept(models.Actor{UserID: 1, Role: models.RoleIndividual}, 5); !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRespondToTerminalRequest(t *testing.T) {
	env := pendingEnvelope(5)
	env.Status = models.RequestCompleted
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return env, nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if _, err := s.Reject(models.Actor{UserID: 2, Role: models.RoleBloodBank}, 5); !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable, got %v", err)
	}
}

func TestCancelPendingAlwaysAllowed(t *testing.T) {
	// Even with the target inside the guard window, a pending envelope
	// cancels unconditionally.
	soon := testNow.Add(30 * time.Minute)
	env := pendingEnvelope(5)
	env.TargetAt = &soon
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return env, nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	got, err := s.Cancel(models.Actor{UserID: 1, Role: models.RoleIndividual}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.RequestCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestCancelAcceptedOutsideGuardWindow(t *testing.T) {
	target := testNow.Add(3 * time.Hour)
	env := pendingEnvelope(5)
	env.Status = models.RequestAccepted
	env.TargetAt = &target
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return env, nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	got, err := s.Cancel(models.Actor{UserID: 1, Role: models.RoleIndividual}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.RequestCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestCancelAcceptedInsideGuardWindow(t *testing.T) {
	target := testNow.Add(1 * time.Hour)
	env := pendingEnvelope(5)
	env.Status = models.RequestAccepted
	env.TargetAt = &target
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return env, nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if _, err := s.Cancel(models.Actor{UserID: 1, Role: models.RoleIndividual}, 5); !apierr.Is(err, apierr.CodeTooLateToCancel) {
		t.Fatalf("expected too_late_to_cancel, got %v", err)
	}
}

func TestCompleteInsideGuardWindow(t *testing.T) {
	// Completion ignores the cancellation guard entirely.
	target := testNow.Add(30 * time.Minute)
	env := &models.RequestEnvelope{
		ID:             5,
		Kind:           models.RequestMeeting,
		RequesterID:    1,
		CounterpartyID: 2,
		Status:         models.RequestAccepted,
		TargetAt:       &target,
	}
	var cooldownSet time.Time
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return env, nil },
		setCooldownUntil: func(_ int64, until time.Time) error {
			cooldownSet = until
			return nil
		},
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	got, err := s.Complete(models.Actor{UserID: 2, Role: models.RoleBloodBank}, 5, models.CompleteRequestInput{CooldownDays: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.RequestCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	want := testNow.AddDate(0, 0, 3)
	if !cooldownSet.Equal(want) {
		t.Fatalf("expected cooldown until %s, got %s", want, cooldownSet)
	}
}

func TestTransitionLostRace(t *testing.T) {
	env := pendingEnvelope(5)
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) {
			// After the CAS fails the reload sees the winner's state.
			reloaded := pendingEnvelope(5)
			reloaded.Status = models.RequestCancelled
			if env.Status == models.RequestPending {
				return env, nil
			}
			return reloaded, nil
		},
		updateStatusCAS: func(int64, models.RequestStatus, models.RequestStatus) (bool, error) {
			env.Status = models.RequestCancelled
			return false, nil
		},
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if _, err := s.Accept(models.Actor{UserID: 2, Role: models.RoleBloodBank}, 5); !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable after lost race, got %v", err)
	}
}

func TestHideRequiresTerminalStatus(t *testing.T) {
	requests := &fakeRequestRepo{
		getByID: func(int64) (*models.RequestEnvelope, error) { return pendingEnvelope(5), nil },
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if err := s.Hide(models.Actor{UserID: 1, Role: models.RoleIndividual}, 5); !apierr.Is(err, apierr.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status, got %v", err)
	}
}

func TestListForcesOwnSideForNonAdmins(t *testing.T) {
	var seenRequester, seenViewer int64
	requests := &fakeRequestRepo{
		list: func(filter repository.RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, int, error) {
			seenRequester = filter.RequesterID
			seenViewer = filter.ViewerID
			return nil, 0, nil
		},
	}
	s := newRequestService(requests, bloodBankUser(2), &recorderStub{})

	if _, _, err := s.List(models.Actor{UserID: 9, Role: models.RoleIndividual}, repository.RequestFilter{}, models.PageParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenRequester != 9 || seenViewer != 9 {
		t.Fatalf("expected filter pinned to caller, got requester=%d viewer=%d", seenRequester, seenViewer)
	}
}
