package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of account roles. Roles are resolved once at
// login and carried in the session token; call sites must never derive
// capabilities by inspecting role substrings.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleIndividual         Role = "individual"
	RoleVolunteer          Role = "volunteer"
	RoleHospital           Role = "hospital"
	RoleBloodBank          Role = "blood_bank"
	RoleFireDepartment     Role = "fire_department"
	RoleSocialOrganization Role = "social_organization"
)

// ValidRoles lists every role accepted at registration.
var ValidRoles = map[Role]bool{
	RoleAdmin:              true,
	RoleIndividual:         true,
	RoleVolunteer:          true,
	RoleHospital:           true,
	RoleBloodBank:          true,
	RoleFireDepartment:     true,
	RoleSocialOrganization: true,
}

// IsOrganization reports whether the role belongs to an organization
// account (one that must hold crisis participation to act).
func (r Role) IsOrganization() bool {
	switch r {
	case RoleHospital, RoleBloodBank, RoleFireDepartment, RoleSocialOrganization:
		return true
	}
	return false
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Actor is the resolved caller identity injected into every core
// operation by the auth middleware. It is explicit request state, never
// ambient globals.
type Actor struct {
	UserID  int64
	Role    Role
	IsAdmin bool
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID  int64 `json:"user_id"`
	Role    Role  `json:"role"`
	IsAdmin bool  `json:"is_admin"`
	jwt.RegisteredClaims
}

// UserLocation is a user's most recent reported position. Absence of a
// row means the user is not a geofence candidate.
type UserLocation struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Latitude   float64   `db:"latitude" json:"latitude"`
	Longitude  float64   `db:"longitude" json:"longitude"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
