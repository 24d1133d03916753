package service

import (
	"fmt"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"
	"crisisintel/internal/repository"

	"go.uber.org/zap"
)

// ParticipationService governs who may act inside a crisis: direct
// joins, participation requests, invitations, and leaving. It also owns
// the authorization rule every other component consults.
type ParticipationService struct {
	participation repository.ParticipationRepository
	crises        repository.CrisisRepository
	users         repository.AuthRepository
	recorder      Recorder
	notifier      Notifier
	logger        *zap.Logger
}

func NewParticipationService(
	participation repository.ParticipationRepository,
	crises repository.CrisisRepository,
	users repository.AuthRepository,
	recorder Recorder,
	notifier Notifier,
	logger *zap.Logger,
) *ParticipationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ParticipationService{
		participation: participation,
		crises:        crises,
		users:         users,
		recorder:      recorder,
		notifier:      notifier,
		logger:        logger,
	}
}

// activeCrisis loads the crisis and rejects terminal ones.
func (s *ParticipationService) activeCrisis(crisisID int64) (*models.Crisis, error) {
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

// Authorize enforces the shared rule: an organization-role actor may
// act on a crisis only while holding an active participant record;
// holding the role alone is never sufficient. Admins always pass.
func (s *ParticipationService) Authorize(actor models.Actor, crisisID int64) error {
	if actor.IsAdmin {
		return nil
	}
	if !actor.Role.IsOrganization() {
		return nil
	}
	p, err := s.participation.GetParticipant(crisisID, actor.UserID)
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	if p == nil {
		return apierr.Newf(apierr.CodeForbidden, "organization is not a participant of this crisis")
	}
	return nil
}

// IsParticipant reports whether the user holds an active participant
// record in the crisis.
func (s *ParticipationService) IsParticipant(crisisID, userID int64) (bool, error) {
	p, err := s.participation.GetParticipant(crisisID, userID)
	if err != nil {
		return false, fmt.Errorf("get participant: %w", err)
	}
	return p != nil, nil
}

// Join is the admin-only direct admission path.
func (s *ParticipationService) Join(actor models.Actor, crisisID int64, input models.JoinInput) (*models.Participant, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if _, err := s.activeCrisis(crisisID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apierr.Newf(apierr.CodeNotFound, "user not found")
	}

	participant := &models.Participant{CrisisID: crisisID, UserID: input.UserID, RoleLabel: input.RoleLabel}
	if err := s.participation.AddParticipant(participant); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	s.recorder.Record(actor, "participant.joined", "crisis", crisisID, input.RoleLabel)
	return participant, nil
}

// RequestParticipation files a request-to-participate. A second filing
// while one is still pending yields the duplicate indicator, not a row.
func (s *ParticipationService) RequestParticipation(actor models.Actor, crisisID int64, input models.ParticipationRequestInput) (*models.ParticipationRequest, bool, error) {
	if _, err := s.activeCrisis(crisisID); err != nil {
		return nil, false, err
	}

	existing, err := s.participation.GetParticipant(crisisID, actor.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("get participant: %w", err)
	}
	if existing != nil {
		return nil, false, apierr.Newf(apierr.CodeConflict, "already participating")
	}

	req := &models.ParticipationRequest{
		CrisisID:  crisisID,
		UserID:    actor.UserID,
		RoleLabel: input.RoleLabel,
		Note:      input.Note,
		Status:    models.ParticipationRequestPending,
	}
	created, err := s.participation.CreateRequestIfAbsent(req)
	if err != nil {
		return nil, false, fmt.Errorf("create participation request: %w", err)
	}
	if !created {
		return nil, true, nil
	}

	s.recorder.Record(actor, "participation_request.created", "crisis", crisisID, input.RoleLabel)
	return req, false, nil
}

func (s *ParticipationService) ApproveRequest(actor models.Actor, requestID int64) (*models.ParticipationRequest, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}

	req, err := s.participation.GetRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("get participation request: %w", err)
	}
	if req == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if req.Status != models.ParticipationRequestPending {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	approved, err := s.participation.ApproveRequest(req)
	if err != nil {
		return nil, fmt.Errorf("approve participation request: %w", err)
	}
	if !approved {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	req.Status = models.ParticipationRequestApproved
	s.recorder.Record(actor, "participation_request.approved", "crisis", req.CrisisID, req.RoleLabel)
	s.notifier.Notify(req.UserID, "participation_approved", map[string]any{"crisis_id": req.CrisisID})
	return req, nil
}

func (s *ParticipationService) RejectRequest(actor models.Actor, requestID int64) (*models.ParticipationRequest, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}

	req, err := s.participation.GetRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("get participation request: %w", err)
	}
	if req == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if req.Status != models.ParticipationRequestPending {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	rejected, err := s.participation.RejectRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("reject participation request: %w", err)
	}
	if !rejected {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	req.Status = models.ParticipationRequestRejected
	s.recorder.Record(actor, "participation_request.rejected", "crisis", req.CrisisID, "")
	return req, nil
}

// Invite issues an admin invitation to a specific organization account.
func (s *ParticipationService) Invite(actor models.Actor, crisisID int64, input models.InviteInput) (*models.Invitation, error) {
	if !actor.IsAdmin {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if _, err := s.activeCrisis(crisisID); err != nil {
		return nil, err
	}

	org, err := s.users.GetUserByID(input.OrgUserID)
	if err != nil {
		return nil, fmt.Errorf("get org user: %w", err)
	}
	if org == nil {
		return nil, apierr.Newf(apierr.CodeNotFound, "organization account not found")
	}
	if !org.Role.IsOrganization() {
		return nil, apierr.Newf(apierr.CodeValidation, "invited account is not an organization")
	}

	inv := &models.Invitation{
		CrisisID:  crisisID,
		OrgUserID: org.ID,
		OrgType:   org.Role,
		Status:    models.InvitationPending,
		InvitedBy: actor.UserID,
	}
	if err := s.participation.CreateInvitation(inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.recorder.Record(actor, "invitation.created", "crisis", crisisID, string(org.Role))
	s.notifier.Notify(org.ID, "invitation_created", map[string]any{"crisis_id": crisisID, "invitation_id": inv.ID})
	return inv, nil
}

// AcceptInvitation admits the invited organization; only the invitee
// may accept, and only while the invitation is pending.
func (s *ParticipationService) AcceptInvitation(actor models.Actor, invitationID int64) (*models.Invitation, error) {
	inv, err := s.participation.GetInvitation(invitationID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if inv.OrgUserID != actor.UserID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if inv.Status != models.InvitationPending {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}
	if _, err := s.activeCrisis(inv.CrisisID); err != nil {
		return nil, err
	}

	accepted, err := s.participation.AcceptInvitation(inv, string(inv.OrgType))
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if !accepted {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	inv.Status = models.InvitationAccepted
	s.recorder.Record(actor, "invitation.accepted", "crisis", inv.CrisisID, "")
	return inv, nil
}

func (s *ParticipationService) DeclineInvitation(actor models.Actor, invitationID int64) (*models.Invitation, error) {
	inv, err := s.participation.GetInvitation(invitationID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv == nil {
		return nil, apierr.New(apierr.CodeNotFound)
	}
	if inv.OrgUserID != actor.UserID {
		return nil, apierr.New(apierr.CodeForbidden)
	}
	if inv.Status != models.InvitationPending {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	declined, err := s.participation.DeclineInvitation(invitationID)
	if err != nil {
		return nil, fmt.Errorf("decline invitation: %w", err)
	}
	if !declined {
		return nil, apierr.New(apierr.CodeInvalidStatus)
	}

	inv.Status = models.InvitationDeclined
	s.recorder.Record(actor, "invitation.declined", "crisis", inv.CrisisID, "")
	return inv, nil
}

// DeleteInvitation removes a still-pending invitation (admin only).
func (s *ParticipationService) DeleteInvitation(actor models.Actor, invitationID int64) error {
	if !actor.IsAdmin {
		return apierr.New(apierr.CodeForbidden)
	}

	inv, err := s.participation.GetInvitation(invitationID)
	if err != nil {
		return fmt.Errorf("get invitation: %w", err)
	}
	if inv == nil {
		return apierr.New(apierr.CodeNotFound)
	}
	if inv.Status != models.InvitationPending {
		return apierr.New(apierr.CodeInvalidStatus)
	}

	deleted, err := s.participation.DeletePendingInvitation(invitationID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if !deleted {
		return apierr.New(apierr.CodeInvalidStatus)
	}

	s.recorder.Record(actor, "invitation.deleted", "crisis", inv.CrisisID, "")
	return nil
}

// Leave removes the caller's membership and their victim record, if
// any, in one storage transaction.
func (s *ParticipationService) Leave(actor models.Actor, crisisID int64) error {
	left, err := s.participation.Leave(crisisID, actor.UserID)
	if err != nil {
		return fmt.Errorf("leave crisis: %w", err)
	}
	if !left {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "participant.left", "crisis", crisisID, "")
	return nil
}

// Remove deletes a specific participant's membership (admin only).
func (s *ParticipationService) Remove(actor models.Actor, crisisID, userID int64) error {
	if !actor.IsAdmin {
		return apierr.New(apierr.CodeForbidden)
	}

	removed, err := s.participation.RemoveParticipant(crisisID, userID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	if !removed {
		return apierr.New(apierr.CodeNotFound)
	}

	s.recorder.Record(actor, "participant.removed", "crisis", crisisID, "")
	return nil
}

func (s *ParticipationService) ListParticipants(crisisID int64, page models.PageParams) ([]*models.Participant, models.PageMeta, error) {
	page = page.Normalize()
	participants, total, err := s.participation.ListParticipants(crisisID, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list participants: %w", err)
	}
	return participants, models.NewPageMeta(page, total), nil
}

func (s *ParticipationService) ListRequests(actor models.Actor, crisisID int64, status models.ParticipationRequestStatus, page models.PageParams) ([]*models.ParticipationRequest, models.PageMeta, error) {
	if !actor.IsAdmin {
		return nil, models.PageMeta{}, apierr.New(apierr.CodeForbidden)
	}
	page = page.Normalize()
	requests, total, err := s.participation.ListRequests(crisisID, status, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list participation requests: %w", err)
	}
	return requests, models.NewPageMeta(page, total), nil
}

func (s *ParticipationService) ListInvitations(actor models.Actor, crisisID int64, page models.PageParams) ([]*models.Invitation, models.PageMeta, error) {
	page = page.Normalize()
	// Non-admins only see their own invitations.
	orgUserID := int64(0)
	if !actor.IsAdmin {
		orgUserID = actor.UserID
	}
	invitations, total, err := s.participation.ListInvitations(crisisID, orgUserID, page)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, models.NewPageMeta(page, total), nil
}
