// Package reconcile applies the payment gateway's authoritative outcome to
// local order and payment state. Both entry points (buyer redirects and
// server-to-server webhooks) are safe to receive any number of times.
package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/store"
)

// Outcome is the redirect-callback result reported by the hosted payment page.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeCancel  Outcome = "cancel"
)

var (
	// ErrOrderNotFound means the callback names an order this system does
	// not have.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotOrderOwner means the requesting buyer does not own the order.
	ErrNotOrderOwner = errors.New("order does not belong to this buyer")
	// ErrPaymentNotFound means the order has no payment record to reconcile;
	// recoverable, nothing is mutated.
	ErrPaymentNotFound = errors.New("payment record not found")
)

type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// HandleRedirect processes a success or cancel redirect callback for an
// order the requesting buyer owns.
func (s *Service) HandleRedirect(ctx context.Context, userID string, orderID uint, outcome Outcome) error {
	order, err := s.store.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	// Authorization before any mutable-state work.
	if order.UserID != userID {
		return ErrNotOrderOwner
	}

	return s.store.Transact(ctx, func(tx store.Store) error {
		payment, err := tx.LatestPayment(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		switch outcome {
		case OutcomeSuccess:
			return s.applyCompleted(ctx, tx, order, payment)
		case OutcomeCancel:
			return s.applyAborted(ctx, tx, payment, models.PaymentStatusCancelled)
		default:
			return errors.New("unknown redirect outcome: " + string(outcome))
		}
	})
}

// HandleWebhook processes one provider event. Unknown transaction ids and
// unknown event types are logged and ignored; they may belong to another
// system or race order creation.
func (s *Service) HandleWebhook(ctx context.Context, event gateway.Event) error {
	return s.store.Transact(ctx, func(tx store.Store) error {
		payment, err := tx.PaymentByGatewayTransaction(ctx, event.Data.ID)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Info("webhook for unknown gateway transaction, ignoring",
				zap.String("transaction_id", event.Data.ID), zap.String("type", event.Type))
			return nil
		}
		if err != nil {
			return err
		}

		order, err := tx.OrderByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		switch event.Type {
		case gateway.EventPaymentCompleted:
			return s.applyCompleted(ctx, tx, order, payment)
		case gateway.EventPaymentFailed:
			return s.applyAborted(ctx, tx, payment, models.PaymentStatusFailed)
		case gateway.EventPaymentRefunded:
			return s.applyRefunded(ctx, tx, order, payment)
		default:
			s.log.Info("unhandled webhook event type, ignoring",
				zap.String("type", event.Type), zap.String("transaction_id", event.Data.ID))
			return nil
		}
	})
}

// applyCompleted moves payment to completed and the order to processing.
// Re-applying when already completed is a no-op.
func (s *Service) applyCompleted(ctx context.Context, tx store.Store, order *models.Order, payment *models.Payment) error {
	if payment.Status == models.PaymentStatusCompleted {
		return nil
	}
	if payment.Status == models.PaymentStatusRefunded {
		s.log.Warn("completed event for refunded payment, ignoring",
			zap.Uint("order_id", order.ID), zap.String("payment_id", payment.PaymentID))
		return nil
	}

	now := s.now()
	payment.Status = models.PaymentStatusCompleted
	payment.ProcessedAt = &now
	if err := tx.SavePayment(ctx, payment); err != nil {
		return err
	}

	order.Status = models.OrderStatusProcessing
	order.CompletedAt = &now
	return tx.SaveOrder(ctx, order)
}

// applyAborted marks the payment failed or cancelled. The order stays
// pending: the reservation is kept so the buyer can retry payment.
func (s *Service) applyAborted(ctx context.Context, tx store.Store, payment *models.Payment, status models.PaymentStatus) error {
	if payment.Terminal() {
		return nil
	}
	now := s.now()
	payment.Status = status
	payment.ProcessedAt = &now
	return tx.SavePayment(ctx, payment)
}

// applyRefunded fully reverses the sale: payment and order become refunded
// and inventory is restored for every physical line.
func (s *Service) applyRefunded(ctx context.Context, tx store.Store, order *models.Order, payment *models.Payment) error {
	if payment.Status == models.PaymentStatusRefunded {
		return nil
	}
	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusCompleted:
	default:
		s.log.Warn("refund event for order in non-refundable state, ignoring",
			zap.Uint("order_id", order.ID), zap.String("status", string(order.Status)))
		return nil
	}

	now := s.now()
	payment.Status = models.PaymentStatusRefunded
	payment.ProcessedAt = &now
	if err := tx.SavePayment(ctx, payment); err != nil {
		return err
	}

	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	order.Status = models.OrderStatusRefunded
	return tx.SaveOrder(ctx, order)
}
