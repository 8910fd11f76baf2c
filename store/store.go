package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tradecove/marketplace-api/models"
)

// ErrNotFound is returned by finders when no row matches.
var ErrNotFound = errors.New("record not found")

// InsufficientStockError is returned by ReserveStock when the conditional
// decrement matches no row, either because stock dropped below the requested
// quantity or the product row is gone.
type InsufficientStockError struct {
	ProductID uint
	Quantity  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Quantity)
}

// Store is the persistence boundary shared by the checkout, reconciliation
// and order services. All inventory mutation goes through ReserveStock and
// RestoreStock so the non-negative invariant is enforced in one place.
type Store interface {
	// Transact runs fn against a transaction-bound Store. fn returning an
	// error rolls the whole unit back.
	Transact(ctx context.Context, fn func(Store) error) error

	// Cart store.
	CartItems(ctx context.Context, userID string) ([]models.CartItem, error)
	UpsertCartItem(ctx context.Context, userID string, productID uint, quantity int) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, userID string, productID uint) error
	ClearCart(ctx context.Context, userID string) error
	MergeCartLines(ctx context.Context, userID string, lines []models.SessionCartLine) error

	// Product read-model.
	ProductsByID(ctx context.Context, ids []uint) (map[uint]models.Product, error)

	// Orders.
	CreateOrder(ctx context.Context, order *models.Order) error
	OrderByID(ctx context.Context, id uint) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, orderID uint) error
	RecentPendingOrder(ctx context.Context, userID string, totalCents int64, since time.Time) (*models.Order, error)

	// Payments.
	LatestPayment(ctx context.Context, orderID uint) (*models.Payment, error)
	PaymentByGatewayTransaction(ctx context.Context, transactionID string) (*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error

	// Inventory ledger.
	ReserveStock(ctx context.Context, productID uint, quantity int) error
	RestoreStock(ctx context.Context, productID uint, quantity int) error
}
