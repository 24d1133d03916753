package models

import "time"

// UnitKind distinguishes the two deployable unit types.
type UnitKind string

const (
	UnitTeam           UnitKind = "team"
	UnitVolunteerGroup UnitKind = "volunteer_group"
)

type DeploymentStatus string

const (
	DeploymentActive    DeploymentStatus = "active"
	DeploymentCompleted DeploymentStatus = "completed"
	DeploymentWithdrawn DeploymentStatus = "withdrawn"
)

// Deployment assigns a team or volunteer group to an incident. It is
// additive bookkeeping; it does not lock the roster against other
// deployments.
type Deployment struct {
	ID         int64            `db:"id" json:"id"`
	IncidentID int64            `db:"incident_id" json:"incident_id"`
	UnitKind   UnitKind         `db:"unit_kind" json:"unit_kind"`
	UnitID     int64            `db:"unit_id" json:"unit_id"`
	Headcount  int              `db:"headcount" json:"headcount"`
	Note       string           `db:"note" json:"note"`
	Status     DeploymentStatus `db:"status" json:"status"`
	DeployedBy int64            `db:"deployed_by" json:"deployed_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Team is the roster subset needed to validate a deployment
// counterparty; full roster management lives outside this service.
type Team struct {
	ID        int64  `db:"id" json:"id"`
	OwnerID   int64  `db:"owner_id" json:"owner_id"`
	Name      string `db:"name" json:"name"`
	Headcount int    `db:"headcount" json:"headcount"`
	Status    string `db:"status" json:"status"` // available, busy, off_duty
}

// VolunteerGroup mirrors Team for volunteer units.
type VolunteerGroup struct {
	ID      int64  `db:"id" json:"id"`
	OwnerID int64  `db:"owner_id" json:"owner_id"`
	Name    string `db:"name" json:"name"`
	Members int    `db:"members" json:"members"`
	Status  string `db:"status" json:"status"` // accepted, active, inactive
}

// DeployInput represents input for deploying a unit to an incident.
type DeployInput struct {
	IncidentID int64    `json:"incident_id" binding:"required"`
	UnitKind   UnitKind `json:"unit_kind" binding:"required"`
	UnitID     int64    `json:"unit_id" binding:"required"`
	Headcount  int      `json:"headcount"`
	Note       string   `json:"note"`
}
