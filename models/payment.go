package models

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Payment is one payment attempt against an order. An order may accumulate
// several attempts over its lifetime; the latest one is authoritative for
// current payment state.
type Payment struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	OrderID              uint          `gorm:"index;not null" json:"order_id"`
	PaymentID            string        `gorm:"uniqueIndex;not null" json:"payment_id"`
	GatewayTransactionID string        `gorm:"index" json:"gateway_transaction_id"`
	AmountCents          int64         `gorm:"not null" json:"amount_cents"`
	Currency             string        `gorm:"type:VARCHAR(3);not null" json:"currency"`
	Status               PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	// GatewayResponse holds the provider's last raw response for support and
	// audit; the application never parses it after the fact.
	GatewayResponse string     `json:"-"`
	ProcessedAt     *time.Time `json:"processed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Terminal reports whether the payment has reached a state the gateway can
// no longer move it out of, refunds excepted.
func (p *Payment) Terminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}
