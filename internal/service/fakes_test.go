package service

import (
	"time"

	"crisisintel/internal/models"
	"crisisintel/internal/repository"
)

// The fakes below stand in for the sqlx repositories. Each method
// delegates to a func field when set and returns zero values otherwise,
// so a test only wires the calls it cares about.

type fakeAuthRepo struct {
	createUser     func(user *models.User) error
	getUserByEmail func(email string) (*models.User, error)
	getUserByID    func(id int64) (*models.User, error)
}

func (f *fakeAuthRepo) CreateUser(user *models.User) error {
	if f.createUser != nil {
		return f.createUser(user)
	}
	return nil
}

func (f *fakeAuthRepo) GetUserByEmail(email string) (*models.User, error) {
	if f.getUserByEmail != nil {
		return f.getUserByEmail(email)
	}
	return nil, nil
}

func (f *fakeAuthRepo) GetUserByID(id int64) (*models.User, error) {
	if f.getUserByID != nil {
		return f.getUserByID(id)
	}
	return nil, nil
}

type fakeCrisisRepo struct {
	create          func(crisis *models.Crisis) error
	getByID         func(id int64) (*models.Crisis, error)
	list            func(status models.CrisisStatus, page models.PageParams) ([]*models.Crisis, int, error)
	updateStatusCAS func(id int64, expected, next models.CrisisStatus) (bool, error)
}

func (f *fakeCrisisRepo) Create(crisis *models.Crisis) error {
	if f.create != nil {
		return f.create(crisis)
	}
	return nil
}

func (f *fakeCrisisRepo) GetByID(id int64) (*models.Crisis, error) {
	if f.getByID != nil {
		return f.getByID(id)
	}
	return nil, nil
}

func (f *fakeCrisisRepo) List(status models.CrisisStatus, page models.PageParams) ([]*models.Crisis, int, error) {
	if f.list != nil {
		return f.list(status, page)
	}
	return nil, 0, nil
}

func (f *fakeCrisisRepo) UpdateStatusCAS(id int64, expected, next models.CrisisStatus) (bool, error) {
	if f.updateStatusCAS != nil {
		return f.updateStatusCAS(id, expected, next)
	}
	return false, nil
}

// closedCrisisRepo answers every lookup with a terminal crisis.
func closedCrisisRepo() *fakeCrisisRepo {
	return &fakeCrisisRepo{
		getByID: func(id int64) (*models.Crisis, error) {
			return &models.Crisis{ID: id, Status: models.CrisisClosed}, nil
		},
	}
}

type fakeParticipationRepo struct {
	addParticipant          func(p *models.Participant) error
	getParticipant          func(crisisID, userID int64) (*models.Participant, error)
	listParticipants        func(crisisID int64, page models.PageParams) ([]*models.Participant, int, error)
	removeParticipant       func(crisisID, userID int64) (bool, error)
	leave                   func(crisisID, userID int64) (bool, error)
	createRequestIfAbsent   func(req *models.ParticipationRequest) (bool, error)
	getRequest              func(id int64) (*models.ParticipationRequest, error)
	listRequests            func(crisisID int64, status models.ParticipationRequestStatus, page models.PageParams) ([]*models.ParticipationRequest, int, error)
	approveRequest          func(req *models.ParticipationRequest) (bool, error)
	rejectRequest           func(id int64) (bool, error)
	createInvitation        func(inv *models.Invitation) error
	getInvitation           func(id int64) (*models.Invitation, error)
	listInvitations         func(crisisID, orgUserID int64, page models.PageParams) ([]*models.Invitation, int, error)
	acceptInvitation        func(inv *models.Invitation, roleLabel string) (bool, error)
	declineInvitation       func(id int64) (bool, error)
	deletePendingInvitation func(id int64) (bool, error)
}

func (f *fakeParticipationRepo) AddParticipant(p *models.Participant) error {
	if f.addParticipant != nil {
		return f.addParticipant(p)
	}
	return nil
}

func (f *fakeParticipationRepo) GetParticipant(crisisID, userID int64) (*models.Participant, error) {
	if f.getParticipant != nil {
		return f.getParticipant(crisisID, userID)
	}
	return nil, nil
}

func (f *fakeParticipationRepo) ListParticipants(crisisID int64, page models.PageParams) ([]*models.Participant, int, error) {
	if f.listParticipants != nil {
		return f.listParticipants(crisisID, page)
	}
	return nil, 0, nil
}

func (f *fakeParticipationRepo) RemoveParticipant(crisisID, userID int64) (bool, error) {
	if f.removeParticipant != nil {
		return f.removeParticipant(crisisID, userID)
	}
	return false, nil
}

func (f *fakeParticipationRepo) Leave(crisisID, userID int64) (bool, error) {
	if f.leave != nil {
		return f.leave(crisisID, userID)
	}
	return false, nil
}

func (f *fakeParticipationRepo) CreateRequestIfAbsent(req *models.ParticipationRequest) (bool, error) {
	if f.createRequestIfAbsent != nil {
		return f.createRequestIfAbsent(req)
	}
	return true, nil
}

func (f *fakeParticipationRepo) GetRequest(id int64) (*models.ParticipationRequest, error) {
	if f.getRequest != nil {
		return f.getRequest(id)
	}
	return nil, nil
}

func (f *fakeParticipationRepo) ListRequests(crisisID int64, status models.ParticipationRequestStatus, page models.PageParams) ([]*models.ParticipationRequest, int, error) {
	if f.listRequests != nil {
		return f.listRequests(crisisID, status, page)
	}
	return nil, 0, nil
}

func (f *fakeParticipationRepo) ApproveRequest(req *models.ParticipationRequest) (bool, error) {
	if f.approveRequest != nil {
		return f.approveRequest(req)
	}
	return true, nil
}

func (f *fakeParticipationRepo) RejectRequest(id int64) (bool, error) {
	if f.rejectRequest != nil {
		return f.rejectRequest(id)
	}
	return true, nil
}

func (f *fakeParticipationRepo) CreateInvitation(inv *models.Invitation) error {
	if f.createInvitation != nil {
		return f.createInvitation(inv)
	}
	return nil
}

func (f *fakeParticipationRepo) GetInvitation(id int64) (*models.Invitation, error) {
	if f.getInvitation != nil {
		return f.getInvitation(id)
	}
	return nil, nil
}

func (f *fakeParticipationRepo) ListInvitations(crisisID, orgUserID int64, page models.PageParams) ([]*models.Invitation, int, error) {
	if f.listInvitations != nil {
		return f.listInvitations(crisisID, orgUserID, page)
	}
	return nil, 0, nil
}

func (f *fakeParticipationRepo) AcceptInvitation(inv *models.Invitation, roleLabel string) (bool, error) {
	if f.acceptInvitation != nil {
		return f.acceptInvitation(inv, roleLabel)
	}
	return true, nil
}

func (f *fakeParticipationRepo) DeclineInvitation(id int64) (bool, error) {
	if f.declineInvitation != nil {
		return f.declineInvitation(id)
	}
	return true, nil
}

func (f *fakeParticipationRepo) DeletePendingInvitation(id int64) (bool, error) {
	if f.deletePendingInvitation != nil {
		return f.deletePendingInvitation(id)
	}
	return true, nil
}

type fakeRequestRepo struct {
	create            func(env *models.RequestEnvelope) error
	getByID           func(id int64) (*models.RequestEnvelope, error)
	findRecentPending func(kind models.RequestKind, requesterID, counterpartyID int64, targetAt *time.Time, since time.Time) (*models.RequestEnvelope, error)
	list              func(filter repository.RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, int, error)
	updateStatusCAS   func(id int64, expected, next models.RequestStatus) (bool, error)
	setHidden         func(id, viewerID int64) (bool, error)
	getCooldownUntil  func(providerID int64) (*time.Time, error)
	setCooldownUntil  func(providerID int64, until time.Time) error
}

func (f *fakeRequestRepo) Create(env *models.RequestEnvelope) error {
	if f.create != nil {
		return f.create(env)
	}
	return nil
}

func (f *fakeRequestRepo) GetByID(id int64) (*models.RequestEnvelope, error) {
	if f.getByID != nil {
		return f.getByID(id)
	}
	return nil, nil
}

func (f *fakeRequestRepo) FindRecentPending(kind models.RequestKind, requesterID, counterpartyID int64, targetAt *time.Time, since time.Time) (*models.RequestEnvelope, error) {
	if f.findRecentPending != nil {
		return f.findRecentPending(kind, requesterID, counterpartyID, targetAt, since)
	}
	return nil, nil
}

func (f *fakeRequestRepo) List(filter repository.RequestFilter, page models.PageParams) ([]*models.RequestEnvelope, int, error) {
	if f.list != nil {
		return f.list(filter, page)
	}
	return nil, 0, nil
}

func (f *fakeRequestRepo) UpdateStatusCAS(id int64, expected, next models.RequestStatus) (bool, error) {
	if f.updateStatusCAS != nil {
		return f.updateStatusCAS(id, expected, next)
	}
	return true, nil
}

func (f *fakeRequestRepo) SetHidden(id, viewerID int64) (bool, error) {
	if f.setHidden != nil {
		return f.setHidden(id, viewerID)
	}
	return true, nil
}

func (f *fakeRequestRepo) GetCooldownUntil(providerID int64) (*time.Time, error) {
	if f.getCooldownUntil != nil {
		return f.getCooldownUntil(providerID)
	}
	return nil, nil
}

func (f *fakeRequestRepo) SetCooldownUntil(providerID int64, until time.Time) error {
	if f.setCooldownUntil != nil {
		return f.setCooldownUntil(providerID, until)
	}
	return nil
}

type fakeInventoryRepo struct {
	getLevel        func(providerID int64, resourceType string) (*models.InventoryLevel, error)
	listLevels      func(providerID int64) ([]*models.InventoryLevel, error)
	setLevel        func(level *models.InventoryLevel) error
	allocate        func(alloc *models.Allocation) error
	getAllocation   func(id int64) (*models.Allocation, error)
	listAllocations func(crisisID, providerID int64, page models.PageParams) ([]*models.Allocation, int, error)
	revert          func(id int64) (*models.Allocation, error)
	delete          func(id int64) (bool, error)
}

func (f *fakeInventoryRepo) GetLevel(providerID int64, resourceType string) (*models.InventoryLevel, error) {
	if f.getLevel != nil {
		return f.getLevel(providerID, resourceType)
	}
	return nil, nil
}

func (f *fakeInventoryRepo) ListLevels(providerID int64) ([]*models.InventoryLevel, error) {
	if f.listLevels != nil {
		return f.listLevels(providerID)
	}
	return nil, nil
}

func (f *fakeInventoryRepo) SetLevel(level *models.InventoryLevel) error {
	if f.setLevel != nil {
		return f.setLevel(level)
	}
	return nil
}

func (f *fakeInventoryRepo) Allocate(alloc *models.Allocation) error {
	if f.allocate != nil {
		return f.allocate(alloc)
	}
	return nil
}

func (f *fakeInventoryRepo) GetAllocation(id int64) (*models.Allocation, error) {
	if f.getAllocation != nil {
		return f.getAllocation(id)
	}
	return nil, nil
}

func (f *fakeInventoryRepo) ListAllocations(crisisID, providerID int64, page models.PageParams) ([]*models.Allocation, int, error) {
	if f.listAllocations != nil {
		return f.listAllocations(crisisID, providerID, page)
	}
	return nil, 0, nil
}

func (f *fakeInventoryRepo) Revert(id int64) (*models.Allocation, error) {
	if f.revert != nil {
		return f.revert(id)
	}
	return nil, nil
}

func (f *fakeInventoryRepo) Delete(id int64) (bool, error) {
	if f.delete != nil {
		return f.delete(id)
	}
	return true, nil
}

type fakeVictimRepo struct {
	createIfAbsent         func(v *models.Victim) (bool, error)
	getByID                func(id int64) (*models.Victim, error)
	getByCrisisAndUser     func(crisisID, userID int64) (*models.Victim, error)
	list                   func(crisisID int64, status models.VictimStatus, page models.PageParams) ([]*models.Victim, int, error)
	updateStatus           func(id int64, status models.VictimStatus) (bool, error)
	updateNote             func(id int64, note string) (bool, error)
	delete                 func(id int64) (bool, error)
	deleteByCrisisAndUser  func(crisisID, userID int64) (bool, error)
	upsertLocation         func(loc *models.UserLocation) error
	getLocation            func(userID int64) (*models.UserLocation, error)
	listCandidateLocations func() ([]*models.PotentialVictim, error)
}

func (f *fakeVictimRepo) CreateIfAbsent(v *models.Victim) (bool, error) {
	if f.createIfAbsent != nil {
		return f.createIfAbsent(v)
	}
	return true, nil
}

func (f *fakeVictimRepo) GetByID(id int64) (*models.Victim, error) {
	if f.getByID != nil {
		return f.getByID(id)
	}
	return nil, nil
}

func (f *fakeVictimRepo) GetByCrisisAndUser(crisisID, userID int64) (*models.Victim, error) {
	if f.getByCrisisAndUser != nil {
		return f.getByCrisisAndUser(crisisID, userID)
	}
	return nil, nil
}

func (f *fakeVictimRepo) List(crisisID int64, status models.VictimStatus, page models.PageParams) ([]*models.Victim, int, error) {
	if f.list != nil {
		return f.list(crisisID, status, page)
	}
	return nil, 0, nil
}

func (f *fakeVictimRepo) UpdateStatus(id int64, status models.VictimStatus) (bool, error) {
	if f.updateStatus != nil {
		return f.updateStatus(id, status)
	}
	return true, nil
}

func (f *fakeVictimRepo) UpdateNote(id int64, note string) (bool, error) {
	if f.updateNote != nil {
		return f.updateNote(id, note)
	}
	return true, nil
}

func (f *fakeVictimRepo) Delete(id int64) (bool, error) {
	if f.delete != nil {
		return f.delete(id)
	}
	return true, nil
}

func (f *fakeVictimRepo) DeleteByCrisisAndUser(crisisID, userID int64) (bool, error) {
	if f.deleteByCrisisAndUser != nil {
		return f.deleteByCrisisAndUser(crisisID, userID)
	}
	return true, nil
}

func (f *fakeVictimRepo) UpsertLocation(loc *models.UserLocation) error {
	if f.upsertLocation != nil {
		return f.upsertLocation(loc)
	}
	return nil
}

func (f *fakeVictimRepo) GetLocation(userID int64) (*models.UserLocation, error) {
	if f.getLocation != nil {
		return f.getLocation(userID)
	}
	return nil, nil
}

func (f *fakeVictimRepo) ListCandidateLocations() ([]*models.PotentialVictim, error) {
	if f.listCandidateLocations != nil {
		return f.listCandidateLocations()
	}
	return nil, nil
}

type fakeDeploymentRepo struct {
	create            func(d *models.Deployment) error
	getByID           func(id int64) (*models.Deployment, error)
	list              func(incidentID int64, status models.DeploymentStatus, page models.PageParams) ([]*models.Deployment, int, error)
	updateStatusCAS   func(id int64, expected, next models.DeploymentStatus) (bool, error)
	getTeam           func(id int64) (*models.Team, error)
	getVolunteerGroup func(id int64) (*models.VolunteerGroup, error)
}

func (f *fakeDeploymentRepo) Create(d *models.Deployment) error {
	if f.create != nil {
		return f.create(d)
	}
	return nil
}

func (f *fakeDeploymentRepo) GetByID(id int64) (*models.Deployment, error) {
	if f.getByID != nil {
		return f.getByID(id)
	}
	return nil, nil
}

func (f *fakeDeploymentRepo) List(incidentID int64, status models.DeploymentStatus, page models.PageParams) ([]*models.Deployment, int, error) {
	if f.list != nil {
		return f.list(incidentID, status, page)
	}
	return nil, 0, nil
}

func (f *fakeDeploymentRepo) UpdateStatusCAS(id int64, expected, next models.DeploymentStatus) (bool, error) {
	if f.updateStatusCAS != nil {
		return f.updateStatusCAS(id, expected, next)
	}
	return true, nil
}

func (f *fakeDeploymentRepo) GetTeam(id int64) (*models.Team, error) {
	if f.getTeam != nil {
		return f.getTeam(id)
	}
	return nil, nil
}

func (f *fakeDeploymentRepo) GetVolunteerGroup(id int64) (*models.VolunteerGroup, error) {
	if f.getVolunteerGroup != nil {
		return f.getVolunteerGroup(id)
	}
	return nil, nil
}

// recorderStub captures audit actions in order.
type recorderStub struct {
	actions []string
}

func (r *recorderStub) Record(_ models.Actor, action, _ string, _ int64, _ string) {
	r.actions = append(r.actions, action)
}

// notifierStub captures outbound notifications.
type notifierStub struct {
	userIDs []int64
	types   []string
}

func (n *notifierStub) Notify(userID int64, ntype string, _ map[string]any) {
	n.userIDs = append(n.userIDs, userID)
	n.types = append(n.types, ntype)
}
