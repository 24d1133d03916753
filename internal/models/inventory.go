package models

import "time"

// InventoryLevel is the current stock of one resource type held by a
// provider. Quantity never goes below zero; the ledger CHECK constraint
// and the atomic decrement in the repository both enforce it.
type InventoryLevel struct {
	ProviderID   int64     `db:"provider_id" json:"provider_id"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	Quantity     int       `db:"quantity" json:"quantity"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type AllocationStatus string

const (
	AllocationAllocated AllocationStatus = "allocated"
	AllocationReverted  AllocationStatus = "reverted"
)

// Allocation is a committed draw against a provider's ledger,
// reversible while still in effect.
type Allocation struct {
	ID           int64            `db:"id" json:"id"`
	CrisisID     int64            `db:"crisis_id" json:"crisis_id"`
	ProviderID   int64            `db:"provider_id" json:"provider_id"`
	ResourceType string           `db:"resource_type" json:"resource_type"`
	Quantity     int              `db:"quantity" json:"quantity"`
	Status       AllocationStatus `db:"status" json:"status"`
	Purpose      string           `db:"purpose" json:"purpose"`
	AllocatedBy  int64            `db:"allocated_by" json:"allocated_by"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AllocateInput represents input for drawing stock from a provider.
type AllocateInput struct {
	CrisisID     int64  `json:"crisis_id" binding:"required"`
	ProviderID   int64  `json:"provider_id" binding:"required"`
	ResourceType string `json:"resource_type" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	Purpose      string `json:"purpose"`
}

// SetInventoryInput represents input for a provider stock upsert.
type SetInventoryInput struct {
	ResourceType string `json:"resource_type" binding:"required"`
	Quantity     int    `json:"quantity" binding:"min=0"`
}
