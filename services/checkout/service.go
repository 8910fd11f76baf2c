// Package checkout converts a buyer's cart into a durable order with a
// reserved inventory position and an external payment session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/store"
)

// guardWindow is how far back the duplicate-submission check looks for an
// identical pending order from the same buyer.
const guardWindow = 30 * time.Second

// Config carries the deployment-fixed gateway parameters.
type Config struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Service struct {
	store store.Store
	gw    gateway.SessionCreator
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.Store, gw gateway.SessionCreator, cfg Config, log *zap.Logger) *Service {
	return &Service{store: st, gw: gw, cfg: cfg, log: log, now: time.Now}
}

// Result is what a successful checkout hands back to the HTTP layer.
type Result struct {
	Order       *models.Order
	RedirectURL string
	SessionID   string
	// Reused is set when the duplicate-submission guard matched an existing
	// pending order instead of creating a new one.
	Reused bool
}

// Checkout runs the full orchestration: validate, guard against duplicate
// submission, atomically reserve inventory and create the order graph, then
// create the external payment session. If the session cannot be created the
// committed reservation is compensated away before the error is returned.
func (s *Service) Checkout(ctx context.Context, userID string, billing models.BillingInfo) (*Result, error) {
	items, err := s.store.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.store.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.Purchasable() {
			return nil, &ProductUnavailableError{ProductID: item.ProductID, Name: product.Name}
		}
		if product.TracksInventory() && item.Quantity > product.Stock {
			return nil, &InsufficientStockError{ProductID: product.ID, Name: product.Name, Requested: item.Quantity}
		}
		lineTotal := product.PriceCents * int64(item.Quantity)
		subtotal += lineTotal
		orderItems = append(orderItems, models.OrderItem{
			ProductID:         product.ID,
			StoreID:           product.StoreID,
			ProductName:       product.Name,
			ProductPriceCents: product.PriceCents,
			Quantity:          item.Quantity,
			TotalCents:        lineTotal,
			Digital:           product.Digital,
		})
	}
	total := subtotal

	// Duplicate-submission guard: an identical pending order from the same
	// buyer inside the window is reused rather than duplicated.
	existing, err := s.store.RecentPendingOrder(ctx, userID, total, s.now().Add(-guardWindow))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.reuseOrder(ctx, existing, billing)
	}

	order := &models.Order{
		OrderNumber:   s.orderNumber(),
		UserID:        userID,
		SubtotalCents: subtotal,
		TotalCents:    total,
		Status:        models.OrderStatusPending,
		Billing:       billing,
		Items:         orderItems,
		Payments: []models.Payment{{
			PaymentID:   uuid.NewString(),
			AmountCents: total,
			Currency:    s.cfg.Currency,
			Status:      models.PaymentStatusPending,
		}},
		CreatedAt: s.now(),
	}

	// Atomic unit: order + item snapshots + payment + conditional stock
	// decrements. Any line failing to reserve rolls the whole unit back.
	err = s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if item.Digital {
				continue
			}
			if err := tx.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
				var ise *store.InsufficientStockError
				if errors.As(err, &ise) {
					return &InsufficientStockError{
						ProductID: item.ProductID,
						Name:      item.ProductName,
						Requested: item.Quantity,
					}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The reservation is committed; the external call happens outside any
	// transaction and is compensated on failure.
	session, err := s.createSession(ctx, order, billing.Email)
	if err != nil {
		s.compensate(ctx, order)
		return nil, &PaymentSessionError{Err: err}
	}

	payment := &order.Payments[0]
	payment.GatewayTransactionID = session.ID
	if err := s.store.SavePayment(ctx, payment); err != nil {
		s.log.Error("record gateway session on payment",
			zap.Uint("order_id", order.ID), zap.String("session_id", session.ID), zap.Error(err))
	}

	// Cart clearing is idempotent and non-critical; at-least-once is fine.
	if err := s.store.ClearCart(ctx, userID); err != nil {
		s.log.Warn("clear cart after checkout",
			zap.String("user_id", userID), zap.Uint("order_id", order.ID), zap.Error(err))
	}

	return &Result{Order: order, RedirectURL: session.RedirectURL, SessionID: session.ID}, nil
}

// reuseOrder serves a duplicate submission by opening a fresh session for the
// order that already exists. No new rows are created and no compensation runs
// on failure; the order predates this request and stays retriable.
func (s *Service) reuseOrder(ctx context.Context, order *models.Order, billing models.BillingInfo) (*Result, error) {
	session, err := s.createSession(ctx, order, billing.Email)
	if err != nil {
		return nil, &PaymentSessionError{Err: err}
	}

	payment, err := s.store.LatestPayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	payment.GatewayTransactionID = session.ID
	if err := s.store.SavePayment(ctx, payment); err != nil {
		return nil, err
	}

	return &Result{Order: order, RedirectURL: session.RedirectURL, SessionID: session.ID, Reused: true}, nil
}

func (s *Service) createSession(ctx context.Context, order *models.Order, email string) (*gateway.Session, error) {
	lineItems := make([]gateway.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, gateway.LineItem{
			Name:     item.ProductName,
			Amount:   item.ProductPriceCents,
			Currency: s.cfg.Currency,
			Quantity: item.Quantity,
		})
	}
	return s.gw.CreateSession(ctx, gateway.SessionRequest{
		Reference:     order.OrderNumber,
		LineItems:     lineItems,
		SuccessURL:    fmt.Sprintf("%s?order_id=%d", s.cfg.SuccessURL, order.ID),
		CancelURL:     fmt.Sprintf("%s?order_id=%d", s.cfg.CancelURL, order.ID),
		CustomerEmail: email,
		Metadata: map[string]string{
			"order_id":     fmt.Sprintf("%d", order.ID),
			"order_number": order.OrderNumber,
		},
	})
}

// compensate undoes a committed reservation after a failed session creation:
// restore every physical line, then delete the order graph. Each step is
// best-effort; failures are logged with full context and do not stop the
// remaining steps.
func (s *Service) compensate(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		if err := s.store.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("compensation: restore stock",
				zap.Uint("order_id", order.ID), zap.Uint("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity), zap.Error(err))
		}
	}
	if err := s.store.DeleteOrder(ctx, order.ID); err != nil {
		s.log.Error("compensation: delete order",
			zap.Uint("order_id", order.ID), zap.String("user_id", order.UserID), zap.Error(err))
	}
}

func (s *Service) orderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + s.now().Format("20060102") + "-" + suffix
}
