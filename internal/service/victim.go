package service

import (
	"fmt"

	"crisisintel/internal/apierr"
	"crisisintel/internal/geo"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// VictimService manages victim enrollment, status review, and the
// geofence detector that surfaces potential victims from last-known
// locations.
type VictimService struct {
	victims       repository.VictimRepository
	crises        repository.CrisisRepository
	users         repository.AuthRepository
	participation *ParticipationService
	recorder      Recorder
	notifier      Notifier
	logger        *zap.Logger
}

func NewVictimService(
	victims repository.VictimRepository,
	crises repository.CrisisRepository,
	users repository.AuthRepository,
	participation *ParticipationService,
	recorder Recorder,
	notifier Notifier,
	logger *zap.Logger,
) *VictimService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &VictimService{
		victims:       victims,
		crises:        crises,
		users:         users,
		participation: participation,
		recorder:      recorder,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *VictimService) activeCrisis(crisisID int64) (*models.Crisis, error) {
	crisis, err := s.crises.GetByID(crisisID)
	if err != nil {
		return nil, fmt.Errorf("get crisis: %w", err)
	}
	if crisis == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if crisis.Status.Terminal() {
		return nil, apierr.New(apierr.CodeImmutable)
	}
	return crisis, nil
}

// Enroll self-registers the caller as a pending victim, snapshotting
// their last-known location when one is on file.
func (s *VictimService) Enroll(actor models.Actor, crisisID int64, note string) (*models.Victim, bool, error) {
	if _, err := s.activeCrisis(crisisID); err != nil {
		return nil, false, err
	}

	victim := &models.Victim{
		CrisisID: crisisID,
		UserID:   actor.UserID,
		Status:   models.VictimPending,
		Note:     note,
	}

	loc, err := s.victims.GetLocation(actor.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("get location: %w", err)
	}
	if loc != nil {
		victim.LastLat = &loc.Latitude
		victim.LastLng = &loc.Longitude
	}

	created, err := s.victims.CreateIfAbsent(victim)
	if err != nil {
		return nil, false, fmt.Errorf("enroll victim: %w", err)
	}
	if !created {
		existing, err := s.victims.GetByCrisisAndUser(crisisID, actor.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("get victim: %w", err)
		}
		return existing, true, nil
	}

	s.recorder.Record(actor, "victim.enrolled", "crisis", crisisID, "")
	return victim, false, nil
}

// Unenroll removes the caller's own victim record.
func (s *VictimService) Unenroll(actor models.Actor, crisisID int64) error {
	removed, err := s.victims.DeleteByCrisisAndUser(crisisID, actor.UserID)
	if err != nil {
		return fmt.Errorf("unenroll victim: %w", err)
	}
	if !removed {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "victim.unenrolled", "crisis", crisisID, "")
	return nil
}

// AdminCreate registers a victim on someone's behalf, addressed by user
// id or email.
func (s *VictimService) AdminCreate(actor models.Actor, crisisID int64, input models.AdminCreateVictimInput) (*models.Victim, bool, error) {
	if !actor.IsAdmin {
		return nil, false, apierr.New(apierr.CodeForbidden)
	}
	if _, err := s.activeCrisis(crisisID); err != nil {
		return nil, false, err
	}

	var user *models.User
	var err error
	switch {
	case input.UserID != 0:
		user, err = s.users.GetUserByID(input.UserID)
	case input.Email != "":
		user, err = s.users.GetUserByEmail(input.Email)
	default:
		return nil, false, apierr.Newf(apierr.CodeValidation, "user_id or email is required")
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return nil, false, apierr.Newf(apierr.CodeNotFound, "user not found")
	}

	victim := &models.Victim{
		CrisisID: crisisID,
		UserID:   user.ID,
		Status:   models.VictimPending,
		Note:     input.Note,
	}
	created, err := s.victims.CreateIfAbsent(victim)
	if err != nil {
		return nil, false, fmt.Errorf("create victim: %w", err)
	}
	if !created {
		existing, err := s.victims.GetByCrisisAndUser(crisisID, user.ID)
		if err != nil {
			return nil, false, fmt.Errorf("get victim: %w", err)
		}
		return existing, true, nil
	}

	s.recorder.Record(actor, "victim.created", "crisis", crisisID, input.Note)
	return victim, false, nil
}

// UpdateStatus moves a victim between pending, confirmed, and
// dismissed. Confirm and mark-pending are open to any active
// participant; dismiss is admin only.
func (s *VictimService) UpdateStatus(actor models.Actor, victimID int64, status models.VictimStatus) (*models.Victim, error) {
	switch status {
	case models.VictimPending, models.VictimConfirmed, models.VictimDismissed:
	default:
		return nil, apierr.Newf(apierr.CodeValidation, "unknown victim status %q", status)
	}

	victim, err := s.victims.GetByID(victimID)
	if err != nil {
		return nil, fmt.Errorf("get victim: %w", err)
	}
	if victim == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}

	if status == models.VictimDismissed {
		if !actor.IsAdmin {
			return nil, apierr.New(apierr.CodeForbidden)
		}
	} else {
		if err := s.requireReviewer(actor, victim.CrisisID); err != nil {
			return nil, err
		}
	}

	updated, err := s.victims.UpdateStatus(victimID, status)
	if err != nil {
		return nil, fmt.Errorf("update victim status: %w", err)
	}
	if !updated {
		return nil, apierr.New(apierr.CodeNotFound)
	}

	victim.Status = status
	s.recorder.Record(actor, "victim.status_changed", "victim", victimID, string(status))
	return victim, nil
}

// requireReviewer admits admins and active crisis participants.
func (s *VictimService) requireReviewer(actor models.Actor, crisisID int64) error {
	if actor.IsAdmin {
		return nil
	}
	if actor.Role.IsOrganization() {
		return s.participation.Authorize(actor, crisisID)
	}
	// Plain users must hold participation too; role alone is not enough.
	ok, err := s.participation.IsParticipant(crisisID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.New(apierr.CodeForbidden)
	}
	return nil
}

// UpdateNote edits the victim note (admin only).
func (s *VictimService) UpdateNote(actor models.Actor, victimID int64, note string) error {
	if !actor.IsAdmin {
		return apierr.New(apierr.CodeForbidden)
	}

	updated, err := s.victims.UpdateNote(victimID, note)
	if err != nil {
		return fmt.Errorf("update victim note: %w", err)
	}
	if !updated {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "victim.note_updated", "victim", victimID, "")
	return nil
}

// Delete removes a victim record (admin only).
func (s *VictimService) Delete(actor models.Actor, victimID int64) error {
	if !actor.IsAdmin {
		return apierr.New(apierr.CodeForbidden)
	}

	deleted, err := s.victims.Delete(victimID)
	if err != nil {
		return fmt.Errorf("delete victim: %w", err)
	}
	if !deleted {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "victim.deleted", "victim", victimID, "")
	return nil
}

func (s *VictimService) List(crisisID int64, status models.VictimStatus, page models.PageParams) ([]*models.Victim, models.PageMeta, error) {
	page = page.Normalize()
	victims, total, err := s.victims.List(crisisID, status, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list victims: %w", err)
	}
	return victims, models.NewPageMeta(page, total), nil
}

// ReportLocation stores the caller's current position for later
// geofence evaluation.
func (s *VictimService) ReportLocation(actor models.Actor, input models.ReportLocationInput) (*models.UserLocation, error) {
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, apierr.Newf(apierr.CodeValidation, "coordinates out of range")
	}

	loc := &models.UserLocation{
		UserID:    actor.UserID,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}
	if err := s.victims.UpsertLocation(loc); err != nil {
		return nil, fmt.Errorf("report location: %w", err)
	}

	return loc, nil
}

// DetectPotentialVictims re-evaluates the geofence on demand: every
// user whose last-known location lies within the crisis radius
// (boundary inclusive) is a candidate. Nothing is persisted; the crisis
// owner is notified of the hit count.
func (s *VictimService) DetectPotentialVictims(actor models.Actor, crisisID int64) ([]*models.PotentialVictim, error) {
	crisis, err := s.crises.GetByID(crisisID)
	if err != nil {
		return nil, fmt.Errorf("get crisis: %w", err)
	}
	if crisis == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if err := s.requireReviewer(actor, crisisID); err != nil {
		return nil, err
	}

	candidates, err := s.victims.ListCandidateLocations()
	if err != nil {
		return nil, fmt.Errorf("list candidate locations: %w", err)
	}

	hits := []*models.PotentialVictim{}
	for _, c := range candidates {
		d := geo.HaversineKm(crisis.CenterLat, crisis.CenterLng, c.Latitude, c.Longitude)
		if d <= crisis.RadiusKm {
			c.DistanceKm = d
			hits = append(hits, c)
		}
	}

	if len(hits) > 0 {
		s.notifier.Notify(crisis.CreatedBy, "potential_victims_detected", map[string]any{
			"crisis_id": crisisID,
			"count":     len(hits),
		})
	}

	return hits, nil
}
