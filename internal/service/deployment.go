package service

import (
	"fmt"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// DeploymentService tracks team and volunteer-group dispatches to an
// incident. It is additive bookkeeping: deploying never reserves the
// unit against other deployments.
type DeploymentService struct {
	deployments repository.DeploymentRepository
	recorder    Recorder
	logger      *zap.Logger
}

func NewDeploymentService(deployments repository.DeploymentRepository, recorder Recorder, logger *zap.Logger) *DeploymentService {
	return &DeploymentService{deployments: deployments, recorder: recorder, logger: logger}
}

// Deploy validates the unit against the organization directory and
// creates an active deployment. Teams must be available; volunteer
// groups must be accepted or active.
func (s *DeploymentService) Deploy(actor models.Actor, input models.DeployInput) (*models.Deployment, error) {
	headcount := input.Headcount
	var ownerID int64

	switch input.UnitKind {
	case models.UnitTeam:
		team, err := s.deployments.GetTeam(input.UnitID)
		if err != nil {
			return nil, fmt.Errorf("get team: %w", err)
		}
		if team == nil {
			return nil, apierr.Newf(apierr.CodeNotFound, "team not found")
		}
		if team.Status != "available" {
			return nil, apierr.Newf(apierr.CodeValidation, "team is not available")
		}
		ownerID = team.OwnerID
		if headcount == 0 {
			headcount = team.Headcount
		}
	case models.UnitVolunteerGroup:
		group, err := s.deployments.GetVolunteerGroup(input.UnitID)
		if err != nil {
			return nil, fmt.Errorf("get volunteer group: %w", err)
		}
		if group == nil {
			return nil, apierr.Newf(apierr.CodeNotFound, "volunteer group not found")
		}
		if group.Status != "accepted" && group.Status != "active" {
			return nil, apierr.Newf(apierr.CodeValidation, "volunteer group is not accepted or active")
		}
		ownerID = group.OwnerID
		if headcount == 0 {
			headcount = group.Members
		}
	default:
		return nil, apierr.Newf(apierr.CodeValidation, "unknown unit kind %q", input.UnitKind)
	}

	if !actor.IsAdmin && actor.UserID != ownerID {
		return nil, apierr.New(apierr.CodeForbidden)
	}

	deployment := &models.Deployment{
		IncidentID: input.IncidentID,
		UnitKind:   input.UnitKind,
		UnitID:     input.UnitID,
		Headcount:  headcount,
		Note:       input.Note,
		Status:     models.DeploymentActive,
		DeployedBy: actor.UserID,
	}
	if err := s.deployments.Create(deployment); err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	s.recorder.Record(actor, "deployment.created", "deployment", deployment.ID, input.Note)
	return deployment, nil
}

func (s *DeploymentService) Get(id int64) (*models.Deployment, error) {
	deployment, err := s.deployments.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get deployment: %w", err)
	}
	if deployment == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	return deployment, nil
}

func (s *DeploymentService) List(incidentID int64, status models.DeploymentStatus, page models.PageParams) ([]*models.Deployment, models.PageMeta, error) {
	page = page.Normalize()
	deployments, total, err := s.deployments.List(incidentID, status, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list deployments: %w", err)
	}
	return deployments, models.NewPageMeta(page, total), nil
}

// Complete ends an active deployment normally.
func (s *DeploymentService) Complete(actor models.Actor, id int64) (*models.Deployment, error) {
	return s.transition(actor, id, models.DeploymentCompleted, "deployment.completed")
}

// Withdraw pulls an active deployment back.
func (s *DeploymentService) Withdraw(actor models.Actor, id int64) (*models.Deployment, error) {
	return s.transition(actor, id, models.DeploymentWithdrawn, "deployment.withdrawn")
}

func (s *DeploymentService) transition(actor models.Actor, id int64, next models.DeploymentStatus, action string) (*models.Deployment, error) {
	deployment, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin && actor.UserID != deployment.DeployedBy {
		ownerID, err := s.unitOwner(deployment)
		if err != nil {
			return nil, err
		}
		if actor.UserID != ownerID {
			return nil, apierr.New(apierr.CodeForbidden)
		}
	}

	if deployment.Status != models.DeploymentActive {
		return nil, apierr.New(apierr.CodeImmutable)
	}

	updated, err := s.deployments.UpdateStatusCAS(id, models.DeploymentActive, next)
	if err != nil {
		return nil, fmt.Errorf("update deployment status: %w", err)
	}
	if !updated {
		return nil, apierr.New(apierr.CodeImmutable)
	}

	deployment.Status = next
	s.recorder.Record(actor, action, "deployment", id, "")
	return deployment, nil
}

func (s *DeploymentService) unitOwner(d *models.Deployment) (int64, error) {
	switch d.UnitKind {
	case models.UnitTeam:
		team, err := s.deployments.GetTeam(d.UnitID)
		if err != nil {
			return 0, fmt.Errorf("get team: %w", err)
		}
		if team == nil {
			return 0, nil
		}
		return team.OwnerID, nil
	case models.UnitVolunteerGroup:
		group, err := s.deployments.GetVolunteerGroup(d.UnitID)
		if err != nil {
			return 0, fmt.Errorf("get volunteer group: %w", err)
		}
		if group == nil {
			return 0, nil
		}
		return group.OwnerID, nil
	}
	return 0, nil
}
