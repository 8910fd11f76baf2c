package models

import "time"

type Cart struct {
	CartID    uint       `gorm:"primaryKey" json:"cart_id"`
	UserID    string     `gorm:"uniqueIndex" json:"user_id"` // one cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is an ephemeral line: product reference plus quantity, unique per
// (cart, product). Prices are never stored here; they are snapshotted into
// OrderItems at checkout time.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"index:idx_cart_product,unique" json:"cart_id"`
	ProductID uint      `gorm:"index:idx_cart_product,unique" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// SessionCartLine is a line in the session-scoped staging cart held in redis
// for buyers who have not authenticated yet. Lines are merged into the
// durable cart on login.
type SessionCartLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}
