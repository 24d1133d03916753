package models

import "time"

type CrisisStatus string

const (
	CrisisActive    CrisisStatus = "active"
	CrisisClosed    CrisisStatus = "closed"
	CrisisCancelled CrisisStatus = "cancelled"
)

// Terminal reports whether the crisis accepts no further mutation.
func (s CrisisStatus) Terminal() bool {
	return s == CrisisClosed || s == CrisisCancelled
}

// Crisis is a bounded response effort tied to one incident, with a
// geographic center and radius gating victim detection.
type Crisis struct {
	ID          int64        `db:"id" json:"id"`
	IncidentID  int64        `db:"incident_id" json:"incident_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Status      CrisisStatus `db:"status" json:"status"`
	CenterLat   float64      `db:"center_lat" json:"center_lat"`
	CenterLng   float64      `db:"center_lng" json:"center_lng"`
	RadiusKm    float64      `db:"radius_km" json:"radius_km"`
	FundGoal    int64        `db:"fund_goal" json:"fund_goal"`
	FundRaised  int64        `db:"fund_raised" json:"fund_raised"`
	CreatedBy   int64        `db:"created_by" json:"created_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Participant relates a user or organization account to a crisis.
// (crisis_id, user_id) is unique at the storage layer.
type Participant struct {
	ID        int64     `db:"id" json:"id"`
	CrisisID  int64     `db:"crisis_id" json:"crisis_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	RoleLabel string    `db:"role_label" json:"role_label"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation is an admin-issued invite for a specific organization
// account to join a crisis. Terminal once responded.
type Invitation struct {
	ID        int64            `db:"id" json:"id"`
	CrisisID  int64            `db:"crisis_id" json:"crisis_id"`
	OrgUserID int64            `db:"org_user_id" json:"org_user_id"`
	OrgType   Role             `db:"org_type" json:"org_type"`
	Status    InvitationStatus `db:"status" json:"status"`
	InvitedBy int64            `db:"invited_by" json:"invited_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

type ParticipationRequestStatus string

const (
	ParticipationRequestPending  ParticipationRequestStatus = "pending"
	ParticipationRequestApproved ParticipationRequestStatus = "approved"
	ParticipationRequestRejected ParticipationRequestStatus = "rejected"
)

// ParticipationRequest is a user's application to join a crisis. At
// most one pending request per (crisis_id, user_id) exists; the unique
// partial index enforces it.
type ParticipationRequest struct {
	ID        int64                      `db:"id" json:"id"`
	CrisisID  int64                      `db:"crisis_id" json:"crisis_id"`
	UserID    int64                      `db:"user_id" json:"user_id"`
	RoleLabel string                     `db:"role_label" json:"role_label"`
	Note      string                     `db:"note" json:"note"`
	Status    ParticipationRequestStatus `db:"status" json:"status"`
	CreatedAt time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                  `db:"updated_at" json:"updated_at"`
}

// CreateCrisisInput represents input for creating a crisis.
type CreateCrisisInput struct {
	IncidentID  int64   `json:"incident_id" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	CenterLat   float64 `json:"center_lat" binding:"required"`
	CenterLng   float64 `json:"center_lng" binding:"required"`
	RadiusKm    float64 `json:"radius_km" binding:"required,gt=0"`
	FundGoal    int64   `json:"fund_goal"`
}

// ParticipationRequestInput represents input for filing a
// request-to-participate.
type ParticipationRequestInput struct {
	RoleLabel string `json:"role_label" binding:"required"`
	Note      string `json:"note"`
}

// InviteInput represents input for inviting an organization account.
type InviteInput struct {
	OrgUserID int64 `json:"org_user_id" binding:"required"`
}

// JoinInput represents input for an admin direct join.
type JoinInput struct {
	UserID    int64  `json:"user_id" binding:"required"`
	RoleLabel string `json:"role_label" binding:"required"`
}
