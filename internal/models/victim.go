package models

import "time"

type VictimStatus string

const (
	VictimPending   VictimStatus = "pending"
	VictimConfirmed VictimStatus = "confirmed"
	VictimDismissed VictimStatus = "dismissed"
)

// Victim is a user enrolled as needing assistance within a crisis.
// (crisis_id, user_id) is unique at the storage layer.
type Victim struct {
	ID        int64        `db:"id" json:"id"`
	CrisisID  int64        `db:"crisis_id" json:"crisis_id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Status    VictimStatus `db:"status" json:"status"`
	Note      string       `db:"note" json:"note"`
	LastLat   *float64     `db:"last_lat" json:"last_lat,omitempty"`
	LastLng   *float64     `db:"last_lng" json:"last_lng,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// PotentialVictim is a read-side geofence hit, never persisted.
// DistanceKm is computed in Go, not selected.
type PotentialVictim struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"full_name"`
	Latitude   float64   `db:"latitude" json:"latitude"`
	Longitude  float64   `db:"longitude" json:"longitude"`
	DistanceKm float64   `db:"-" json:"distance_km"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// AdminCreateVictimInput represents input for an admin-created victim
// record; exactly one of UserID or Email identifies the user.
type AdminCreateVictimInput struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Note   string `json:"note"`
}

// UpdateVictimStatusInput represents input for a victim status change.
type UpdateVictimStatusInput struct {
	Status VictimStatus `json:"status" binding:"required"`
}

// ReportLocationInput represents a location update for the caller.
type ReportLocationInput struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}
