package service

import (
	"fmt"
	"time"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// cancelGuardWindow is how close to the target time a committed
// (accepted) request may still be cancelled.
const cancelGuardWindow = 2 * time.Hour

// dedupeWindow is the span within which an identical pending submission
// is treated as a repeat of the original rather than a new envelope.
const dedupeWindow = 10 * time.Minute

// counterpartyRole maps each request kind to the organization role that
// must sit on the other side of the envelope.
var counterpartyRole = map[models.RequestKind]models.Role{
	models.RequestInventory: models.RoleBloodBank,
	models.RequestMeeting:   models.RoleBloodBank,
	models.RequestBooking:   models.RoleHospital,
	models.RequestDispatch:  models.RoleFireDepartment,
}

// RequestService runs the shared request lifecycle over the four
// request kinds. Every transition is a storage-level compare-and-set;
// when two callers race, exactly one wins and the other sees
// invalid_status or immutable.
type RequestService struct {
	requests      repository.RequestRepository
	users         repository.AuthRepository
	participation *ParticipationService
	recorder      Recorder
	clock         func() time.Time
	logger        *zap.Logger
}

func NewRequestService(
	requests repository.RequestRepository,
	users repository.AuthRepository,
	participation *ParticipationService,
	recorder Recorder,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		requests:      requests,
		users:         users,
		participation: participation,
		recorder:      recorder,
		clock:         time.Now,
		logger:        logger,
	}
}

// Create validates the kind-specific payload, checks the counterparty,
// and inserts a pending envelope. An identical pending submission
// inside the dedupe window returns the original envelope and true.
func (s *RequestService) Create(actor models.Actor, input models.CreateRequestInput) (*models.RequestEnvelope, bool, error) {
	role, ok := counterpartyRole[input.Kind]
	if !ok {
		return nil, false, apierr.Newf(apierr.CodeValidation, "unknown request kind %q", input.Kind)
	}

	if input.CrisisID != nil {
		// A crisis-scoped envelope requires the crisis to still be open.
		if _, err := s.participation.activeCrisis(*input.CrisisID); err != nil {
			return nil, false, err
		}
		if err := s.participation.Authorize(actor, *input.CrisisID); err != nil {
			return nil, false, err
		}
	}

	counterparty, err := s.users.GetUserByID(input.CounterpartyID)
	if err != nil {
		return nil, false, fmt.Errorf("get counterparty: %w", err)
	}
	if counterparty == nil {
		return nil, false, apierr.Newf(apierr.CodeNotFound, "counterparty not found")
	}
	if counterparty.Role != role {
		return nil, false, apierr.Newf(apierr.CodeValidation, "counterparty must have role %s", role)
	}

	switch input.Kind {
	case models.RequestInventory:
		if input.BloodType == "" || input.Quantity <= 0 {
			return nil, false, apierr.Newf(apierr.CodeValidation, "blood_type and a positive quantity are required")
		}
	case models.RequestMeeting:
		if input.TargetAt == nil {
			return nil, false, apierr.Newf(apierr.CodeValidation, "target_at is required for a meeting request")
		}
		until, err := s.requests.GetCooldownUntil(counterparty.ID)
		if err != nil {
			return nil, false, fmt.Errorf("get cooldown: %w", err)
		}
		if until != nil && s.clock().Before(*until) {
			return nil, false, apierr.Newf(apierr.CodeCooldownActive, "provider unavailable until %s", until.Format(time.RFC3339))
		}
	case models.RequestBooking:
		if input.Service == "" || input.TargetAt == nil {
			return nil, false, apierr.Newf(apierr.CodeValidation, "service and target_at are required for a booking request")
		}
	case models.RequestDispatch:
		if input.Description == "" || input.Latitude == nil || input.Longitude == nil {
			return nil, false, apierr.Newf(apierr.CodeValidation, "description and location are required for a dispatch request")
		}
	}

	existing, err := s.requests.FindRecentPending(input.Kind, actor.UserID, input.CounterpartyID, input.TargetAt, s.clock().Add(-dedupeWindow))
	if err != nil {
		return nil, false, fmt.Errorf("dedupe lookup: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	env := &models.RequestEnvelope{
		Kind:           input.Kind,
		RequesterID:    actor.UserID,
		CounterpartyID: input.CounterpartyID,
		CrisisID:       input.CrisisID,
		Status:         models.RequestPending,
		TargetAt:       input.TargetAt,
		BloodType:      input.BloodType,
		Quantity:       input.Quantity,
		Service:        input.Service,
		Description:    input.Description,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
	}
	if err := s.requests.Create(env); err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	s.recorder.Record(actor, "request.created", "request", env.ID, string(env.Kind))
	return env, false, nil
}

func (s *RequestService) Get(actor models.Actor, id int64) (*models.RequestEnvelope, error) {
	env, err := s.requests.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if env == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if !actor.IsAdmin && actor.UserID != env.RequesterID && actor.UserID != env.CounterpartyID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	return env, nil
}

func (s *RequestService) List(actor models.Actor, filter repository.RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, models.PageMeta, error) {
	page = page.Normalize()
	if !actor.IsAdmin {
		// Non-admins only see envelopes they own a side of.
		if filter.RequesterID != actor.UserID && filter.CounterpartyID != actor.UserID {
			filter.RequesterID = actor.UserID
		}
		filter.ViewerID = actor.UserID
	}
	envelopes, total, err := s.requests.List(filter, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list requests: %w", err)
	}
	return envelopes, models.NewPageMeta(page, total), nil
}

// Accept moves pending to accepted; counterparty or admin only.
func (s *RequestService) Accept(actor models.Actor, id int64) (*models.RequestEnvelope, error) {
	return s.respond(actor, id, models.RequestAccepted, "request.accepted")
}

// Reject moves pending to rejected; counterparty or admin only.
func (s *RequestService) Reject(actor models.Actor, id int64) (*models.RequestEnvelope, error) {
	return s.respond(actor, id, models.RequestRejected, "request.rejected")
}

func (s *RequestService) respond(actor models.Actor, id int64, next models.RequestStatus, action string) (*models.RequestEnvelope, error) {
	env, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != env.CounterpartyID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if env.Status.Terminal() {
		return nil, apierr.New(apierr.CodeImmutable)
	}
	if env.Status != models.RequestPending {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	return s.transition(actor, env, models.RequestPending, next, action)
}

// Cancel moves pending or accepted to cancelled; requester or admin
// only. A pending envelope cancels unconditionally; once accepted with
// a committed target time, cancellation closes two hours before it.
func (s *RequestService) Cancel(actor models.Actor, id int64) (*models.RequestEnvelope, error) {
	env, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != env.RequesterID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if env.Status.Terminal() {
		return nil, apierr.New(apierr.CodeImmutable)
	}

	if env.Status == models.RequestAccepted && env.TargetAt != nil {
		if !s.clock().Before(env.TargetAt.Add(-cancelGuardWindow)) {
			return nil, apierr.New(apierr.CodeTooLateToCancel)
		}
	}

	return s.transition(actor, env, env.Status, models.RequestCancelled, "request.cancelled")
}

// Complete moves accepted to completed; counterparty or admin only.
// Completion is legal regardless of the cancellation window. For a
// meeting, a positive cooldown applies to the provider's availability.
func (s *RequestService) Complete(actor models.Actor, id int64, input models.CompleteRequestInput) (*models.RequestEnvelope, error) {
	env, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != env.CounterpartyID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if env.Status.Terminal() {
		return nil, apierr.New(apierr.CodeImmutable)
	}
	if env.Status != models.RequestAccepted {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	env, err = s.transition(actor, env, models.RequestAccepted, models.RequestCompleted, "request.completed")
	if err != nil {
		return nil, err
	}

	if env.Kind == models.RequestMeeting && input.CooldownDays > 0 {
		until := s.clock().AddDate(0, 0, input.CooldownDays)
		if err := s.requests.SetCooldownUntil(env.CounterpartyID, until); err != nil {
			// The completion already committed; surface the cooldown
			// failure in the log, not to the caller.
			s.logger.Warn("Failed to apply provider cooldown", zap.Int64("provider_id", env.CounterpartyID), zap.Error(err))
		}
	}

	return env, nil
}

func (s *RequestService) transition(actor models.Actor, env *models.RequestEnvelope, expected, next models.RequestStatus, action string) (*models.RequestEnvelope, error) {
	updated, err := s.requests.UpdateStatusCAS(env.ID, expected, next)
	if err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}
	if !updated {
		// Lost a race; report against the now-current state.
		current, err := s.requests.GetByID(env.ID)
		if err != nil {
			return nil, fmt.Errorf("reload request: %w", err)
		}
		if current == nil {
			return nil, apierr.New(apierr.CodeNotFound)
		}
		if current.Status.Terminal() {
			return nil, apierr.New(apierr.CodeImmutable)
		}
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	env.Status = next
	s.recorder.Record(actor, action, "request", env.ID, string(env.Kind))
	return env, nil
}

// Hide flags a terminal envelope invisible for the caller's side. It is
// a view preference, not a status transition.
func (s *RequestService) Hide(actor models.Actor, id int64) error {
	env, err := s.Get(actor, id)
	if err != nil {
		return err
	}
	if env.Status != models.RequestCompleted && env.Status != models.RequestCancelled {
		return apierr.Newf(apierr.CodeInvalidStatus, "only completed or cancelled requests can be hidden")
	}

	hidden, err := s.requests.SetHidden(id, actor.UserID)
	if err != nil {
		return fmt.Errorf("hide request: %w", err)
	}
	if !hidden {
		return apierr.New(apierr.CodeForbidden)
	}

	return nil
}
