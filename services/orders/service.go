// Package orders covers the buyer-facing supporting operations on orders:
// listing, lookup, cancellation and deletion of still-pending orders.
package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/store"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOrderOwner = errors.New("order does not belong to this buyer")
	// ErrNotPending means cancellation or deletion was attempted on an order
	// that already left the pending state.
	ErrNotPending = errors.New("order is no longer pending")
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log}
}

func (s *Service) ListForBuyer(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.OrdersByUser(ctx, userID)
}

func (s *Service) GetForBuyer(ctx context.Context, userID string, orderID uint) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// Cancel moves a pending order to cancelled, restoring inventory for every
// physical line in the same transaction.
func (s *Service) Cancel(ctx context.Context, userID string, orderID uint) error {
	return s.store.Transact(ctx, func(tx store.Store) error {
		order, err := s.pendingOrder(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}
		if err := restoreLines(ctx, tx, order); err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled
		return tx.SaveOrder(ctx, order)
	})
}

// Delete removes a pending order entirely (payment, items, order),
// restoring inventory for every physical line in the same transaction.
func (s *Service) Delete(ctx context.Context, userID string, orderID uint) error {
	return s.store.Transact(ctx, func(tx store.Store) error {
		order, err := s.pendingOrder(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}
		if err := restoreLines(ctx, tx, order); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, order.ID)
	})
}

func (s *Service) pendingOrder(ctx context.Context, tx store.Store, userID string, orderID uint) (*models.Order, error) {
	order, err := tx.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrNotPending
	}
	return order, nil
}

func restoreLines(ctx context.Context, tx store.Store, order *models.Order) error {
	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}
