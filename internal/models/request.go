package models

import "time"

// RequestKind selects one of the four request shapes sharing the
// envelope lifecycle.
type RequestKind string

const (
	RequestInventory RequestKind = "inventory" // blood units from a bank
	RequestMeeting   RequestKind = "meeting"   // donor appointment with a provider
	RequestBooking   RequestKind = "booking"   // service booking with a hospital
	RequestDispatch  RequestKind = "dispatch"  // fire/rescue callout
)

var ValidRequestKinds = map[RequestKind]bool{
	RequestInventory: true,
	RequestMeeting:   true,
	RequestBooking:   true,
	RequestDispatch:  true,
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// Terminal reports whether no further transition is legal.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCancelled || s == RequestCompleted
}

// RequestEnvelope is the shared record behind all four request kinds.
// Kind-specific payload columns are nullable and only populated for the
// kind that uses them.
type RequestEnvelope struct {
	ID             int64         `db:"id" json:"id"`
	Kind           RequestKind   `db:"kind" json:"kind"`
	RequesterID    int64         `db:"requester_id" json:"requester_id"`
	CounterpartyID int64         `db:"counterparty_id" json:"counterparty_id"`
	CrisisID       *int64        `db:"crisis_id" json:"crisis_id,omitempty"`
	Status         RequestStatus `db:"status" json:"status"`
	TargetAt       *time.Time    `db:"target_at" json:"target_at,omitempty"`

	// inventory payload
	BloodType string `db:"blood_type" json:"blood_type,omitempty"`
	Quantity  int    `db:"quantity" json:"quantity,omitempty"`

	// booking payload
	Service string `db:"service" json:"service,omitempty"`

	// dispatch payload
	Description string   `db:"description" json:"description,omitempty"`
	Latitude    *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64 `db:"longitude" json:"longitude,omitempty"`

	HiddenByRequester    bool      `db:"hidden_by_requester" json:"-"`
	HiddenByCounterparty bool      `db:"hidden_by_counterparty" json:"-"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// CreateRequestInput represents input for creating a request envelope.
type CreateRequestInput struct {
	Kind           RequestKind `json:"kind" binding:"required"`
	CounterpartyID int64       `json:"counterparty_id" binding:"required"`
	CrisisID       *int64      `json:"crisis_id"`
	TargetAt       *time.Time  `json:"target_at"`
	BloodType      string      `json:"blood_type"`
	Quantity       int         `json:"quantity"`
	Service        string      `json:"service"`
	Description    string      `json:"description"`
	Latitude       *float64    `json:"latitude"`
	Longitude      *float64    `json:"longitude"`
}

// CompleteRequestInput carries completion side-effect parameters.
type CompleteRequestInput struct {
	CooldownDays int `json:"cooldown_days"`
}
