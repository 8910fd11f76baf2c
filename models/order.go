package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // created, awaiting payment
	OrderStatusProcessing OrderStatus = "processing" // payment completed, being fulfilled
	OrderStatusCompleted  OrderStatus = "completed"  // fulfilled
	OrderStatusCancelled  OrderStatus = "cancelled"  // cancelled before payment
	OrderStatusRefunded   OrderStatus = "refunded"   // sale fully reversed
)

// BillingInfo is the billing snapshot embedded in the order at creation time.
type BillingInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Postcode     string `json:"postcode"`
}

type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      string `gorm:"index;not null" json:"user_id"`
	// Subtotal and total are snapshots in minor units, fixed at creation.
	SubtotalCents int64       `gorm:"not null" json:"subtotal_cents"`
	TotalCents    int64       `gorm:"not null" json:"total_cents"`
	Status        OrderStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	Billing       BillingInfo `gorm:"embedded;embeddedPrefix:billing_" json:"billing"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payments      []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments"`
	CompletedAt   *time.Time  `json:"completed_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem is an immutable snapshot of product state at order time. It must
// not change even if the source product later changes price or is deleted.
type OrderItem struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	OrderID           uint   `gorm:"index" json:"order_id"`
	ProductID         uint   `json:"product_id"`
	StoreID           uint   `json:"store_id"`
	ProductName       string `json:"product_name"`
	ProductPriceCents int64  `json:"product_price_cents"`
	Quantity          int    `json:"quantity"`
	TotalCents        int64  `json:"total_cents"`
	// Digital is snapshotted so cancellation and refund paths know whether
	// inventory was ever reserved for this line.
	Digital bool `json:"digital"`
}
