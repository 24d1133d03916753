package service

import (
	"testing"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"

	"go.uber.org/zap"
)

func TestCreateCrisisAdminOnly(t *testing.T) {
	s := NewCrisisService(&fakeCrisisRepo{}, &recorderStub{}, zap.NewNop())

	_, err := s.Create(models.Actor{UserID: 5, Role: models.RoleVolunteer}, models.CreateCrisisInput{
		IncidentID: 1,
		Title:      "Flood",
		CenterLat:  10,
		CenterLng:  20,
		RadiusKm:   5,
	})
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateCrisisValidatesGeometry(t *testing.T) {
	s := NewCrisisService(&fakeCrisisRepo{}, &recorderStub{}, zap.NewNop())
	admin := models.Actor{UserID: 99, IsAdmin: true, Role: models.RoleAdmin}

	cases := []models.CreateCrisisInput{
		{IncidentID: 1, Title: "Flood", CenterLat: 10, CenterLng: 20, RadiusKm: 0},
		{IncidentID: 1, Title: "Flood", CenterLat: 91, CenterLng: 20, RadiusKm: 5},
		{IncidentID: 1, Title: "Flood", CenterLat: 10, CenterLng: 181, RadiusKm: 5},
	}
	for _, input := range cases {
		if _, err := s.Create(admin, input); !apierr.Is(err, apierr.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestCloseCrisis(t *testing.T) {
	repo := &fakeCrisisRepo{
		getByID: func(id int64) (*models.Crisis, error) {
			return &models.Crisis{ID: id, Status: models.CrisisActive}, nil
		},
		updateStatusCAS: func(id int64, expected, next models.CrisisStatus) (bool, error) {
			return expected == models.CrisisActive, nil
		},
	}
	s := NewCrisisService(repo, &recorderStub{}, zap.NewNop())
	admin := models.Actor{UserID: 99, IsAdmin: true, Role: models.RoleAdmin}

	crisis, err := s.Close(admin, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crisis.Status != models.CrisisClosed {
		t.Fatalf("expected closed, got %s", crisis.Status)
	}
}

func TestCancelTerminalCrisis(t *testing.T) {
	repo := &fakeCrisisRepo{
		getByID: func(id int64) (*models.Crisis, error) {
			return &models.Crisis{ID: id, Status: models.CrisisClosed}, nil
		},
	}
	s := NewCrisisService(repo, &recorderStub{}, zap.NewNop())
	admin := models.Actor{UserID: 99, IsAdmin: true, Role: models.RoleAdmin}

	if _, err := s.Cancel(admin, 1); !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable, got %v", err)
	}
}

func TestFinishLostRace(t *testing.T) {
	repo := &fakeCrisisRepo{
		getByID: func(id int64) (*models.Crisis, error) {
			return &models.Crisis{ID: id, Status: models.CrisisActive}, nil
		},
		updateStatusCAS: func(int64, models.CrisisStatus, models.CrisisStatus) (bool, error) {
			return false, nil
		},
	}
	s := NewCrisisService(repo, &recorderStub{}, zap.NewNop())
	admin := models.Actor{UserID: 99, IsAdmin: true, Role: models.RoleAdmin}

	if _, err := s.Close(admin, 1); !apierr.Is(err, apierr.CodeImmutable) {
		t.Fatalf("expected immutable after lost race, got %v", err)
	}
}
