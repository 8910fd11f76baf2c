package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is the catalog read-model the checkout path consumes. Catalog CRUD
// lives with the merchant-facing surface; checkout only reads price, stock,
// publish state and the digital flag.
type Product struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID     uint   `gorm:"index;not null" json:"store_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	// PriceCents is the sale price in minor currency units. All internal
	// money arithmetic stays in minor units; conversion happens only at the
	// gateway and display boundaries.
	PriceCents int64          `gorm:"not null" json:"price_cents"`
	Stock      int            `gorm:"not null;default:0" json:"stock"`
	Published  bool           `gorm:"not null;default:false" json:"published"`
	Digital    bool           `gorm:"not null;default:false" json:"digital"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Purchasable reports whether the product can currently be checked out.
func (p *Product) Purchasable() bool {
	return p.Published && !p.DeletedAt.Valid
}

// TracksInventory reports whether reserve/restore applies to this product.
// Digital products are exempt from inventory tracking entirely.
func (p *Product) TracksInventory() bool {
	return !p.Digital
}
