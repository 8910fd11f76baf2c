package models

import "time"

// Store is a merchant tenant. Merchant onboarding and KYB review are handled
// by an external workflow; checkout only needs the owning store id for order
// item snapshots.
type Store struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	OwnerID   string    `gorm:"index" json:"owner_id"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
