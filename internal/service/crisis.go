package service

import (
	"fmt"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// CrisisService manages crisis records. A closed or cancelled crisis is
// terminal; every other component refuses mutations against it.
type CrisisService struct {
	crises   repository.CrisisRepository
	recorder Recorder
	logger   *zap.Logger
}

func NewCrisisService(crises repository.CrisisRepository, recorder Recorder, logger *zap.Logger) *CrisisService {
	return &CrisisService{crises: crises, recorder: recorder, logger: logger}
}

func (s *CrisisService) Create(actor models.Actor, input models.CreateCrisisInput) (*models.Crisis, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if input.RadiusKm <= 0 {
		return nil, apierr.Newf(apierr.CodeValidation, "radius_km must be positive")
	}
	if input.CenterLat < -90 || input.CenterLat > 90 || input.CenterLng < -180 || input.CenterLng > 180 {
		return nil, apierr.Newf(apierr.CodeValidation, "center coordinates out of range")
	}

	crisis := &models.Crisis{
		IncidentID:  input.IncidentID,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.CrisisActive,
		CenterLat:   input.CenterLat,
		CenterLng:   input.CenterLng,
		RadiusKm:    input.RadiusKm,
		FundGoal:    input.FundGoal,
		CreatedBy:   actor.UserID,
	}

	if err := s.crises.Create(crisis); err != nil {
		return nil, fmt.Errorf("create crisis: %w", err)
	}

	s.recorder.Record(actor, "crisis.created", "crisis", crisis.ID, crisis.Title)
	return crisis, nil
}

func (s *CrisisService) Get(id int64) (*models.Crisis, error) {
	crisis, err := s.crises.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get crisis: %w", err)
	}
	if crisis == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	return crisis, nil
}

func (s *CrisisService) List(status models.CrisisStatus, page models.PageParams) ([]*models.Crisis, models.PageMeta, error) {
	page = page.Normalize()
	crises, total, err := s.crises.List(status, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list crises: %w", err)
	}
	return crises, models.NewPageMeta(page, total), nil
}

// Close ends the crisis; Cancel voids it. Both are terminal and CAS
// guarded so two racing admins produce exactly one transition.
func (s *CrisisService) Close(actor models.Actor, id int64) (*models.Crisis, error) {
	return s.finish(actor, id, models.CrisisClosed, "crisis.closed")
}

func (s *CrisisService) Cancel(actor models.Actor, id int64) (*models.Crisis, error) {
	return s.finish(actor, id, models.CrisisCancelled, "crisis.cancelled")
}

func (s *CrisisService) finish(actor models.Actor, id int64, next models.CrisisStatus, action string) (*models.Crisis, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}

	crisis, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if crisis.Status.Terminal() {
		return nil, apierr.New(apierr.CodeImmutable)
	}

	updated, err := s.crises.UpdateStatusCAS(id, models.CrisisActive, next)
	if err != nil {
		return nil, fmt.Errorf("update crisis status: %w", err)
	}
	if !updated {
		return nil, apierr.New(apierr.CodeImmutable)
	}

	crisis.Status = next
	s.recorder.Record(actor, action, "crisis", id, "")
	return crisis, nil
}
