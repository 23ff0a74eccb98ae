// Package vendors is the vendor directory data-access layer and the main cache collaborator.
//
// CachedStore serves reads through the shared cache and invalidates it after every write,
// using the key and tag conventions below:
//
//	vendors:id:<id>      tags vendors, vendors:<id>
//	vendors:slug:<slug>  tags vendors, vendors:slug:<slug>
//	vendors:tier:<tier>  tags vendors, vendors:tier:<tier>
package vendors

import (
	"context"
	"time"
)

// Tier is the subscription level of a vendor
type Tier string

const (
	TierFree   Tier = "free"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Status is the moderation state of a vendor profile
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Vendor is a company profile in the directory
type Vendor struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"size:128;uniqueIndex" json:"slug"`
	Name      string    `gorm:"size:255" json:"name"`
	Tier      Tier      `gorm:"size:16;index" json:"tier"`
	Status    Status    `gorm:"size:16;index" json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the gorm table name
func (Vendor) TableName() string {
	return "vendors"
}

// Store reads and writes vendors
type Store interface {
	// FindByID returns ErrNotFound when no vendor has id
	FindByID(ctx context.Context, id uint64) (*Vendor, error)
	// FindBySlug returns ErrNotFound when no vendor has slug
	FindBySlug(ctx context.Context, slug string) (*Vendor, error)
	// ListByTier returns the approved vendors of tier ordered by name
	ListByTier(ctx context.Context, tier Tier) ([]Vendor, error)
	// Save inserts v, or updates it when v.ID is set
	Save(ctx context.Context, v *Vendor) error
	// Approve marks the vendor approved
	Approve(ctx context.Context, id uint64) error
}
