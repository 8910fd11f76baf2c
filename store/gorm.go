package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tradecove/marketplace-api/models"
)

// GormStore is the production Store backed by postgres via gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the schema for every model this store owns.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.Store{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
}

func (s *GormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// ----- Cart store -----

func (s *GormStore) cartFor(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
		return &cart, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch cart")
	}
	return &cart, nil
}

func (s *GormStore) CartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch cart items")
	}
	return cart.Items, nil
}

func (s *GormStore) UpsertCartItem(ctx context.Context, userID string, productID uint, quantity int) (*models.CartItem, error) {
	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	err = s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = models.CartItem{
			CartID:    cart.CartID,
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, errors.Wrap(err, "create cart item")
		}
		return &item, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch cart item")
	}

	item.Quantity = quantity
	item.AddedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return &item, nil
}

func (s *GormStore) RemoveCartItem(ctx context.Context, userID string, productID uint) error {
	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearCart(ctx context.Context, userID string) error {
	var cart models.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // nothing to clear
	}
	if err != nil {
		return errors.Wrap(err, "fetch cart")
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// MergeCartLines folds a session staging cart into the durable cart,
// adding quantities for products already present. Runs in one transaction.
func (s *GormStore) MergeCartLines(ctx context.Context, userID string, lines []models.SessionCartLine) error {
	return s.Transact(ctx, func(txs Store) error {
		tx := txs.(*GormStore)
		cart, err := tx.cartFor(ctx, userID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			var item models.CartItem
			err := tx.db.WithContext(ctx).
				Where("cart_id = ? AND product_id = ?", cart.CartID, line.ProductID).
				First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				item = models.CartItem{
					CartID:    cart.CartID,
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
					AddedAt:   time.Now(),
				}
				if err := tx.db.WithContext(ctx).Create(&item).Error; err != nil {
					return errors.Wrap(err, "merge: create cart item")
				}
				continue
			}
			if err != nil {
				return errors.Wrap(err, "merge: fetch cart item")
			}
			item.Quantity += line.Quantity
			item.AddedAt = time.Now()
			if err := tx.db.WithContext(ctx).Save(&item).Error; err != nil {
				return errors.Wrap(err, "merge: update cart item")
			}
		}
		return nil
	})
}

// ----- Product read-model -----

func (s *GormStore) ProductsByID(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	out := make(map[uint]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ----- Orders -----

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(err, "create order")
	}
	return nil
}

func (s *GormStore) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch order")
	}
	return &order, nil
}

func (s *GormStore) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "fetch user orders")
	}
	return orders, nil
}

func (s *GormStore) SaveOrder(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
		}).Error
	if err != nil {
		return errors.Wrap(err, "save order")
	}
	return nil
}

func (s *GormStore) DeleteOrder(ctx context.Context, orderID uint) error {
	return s.Transact(ctx, func(txs Store) error {
		tx := txs.(*GormStore)
		if err := tx.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Payment{}).Error; err != nil {
			return errors.Wrap(err, "delete payments")
		}
		if err := tx.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return errors.Wrap(err, "delete order items")
		}
		if err := tx.db.WithContext(ctx).Where("id = ?", orderID).Delete(&models.Order{}).Error; err != nil {
			return errors.Wrap(err, "delete order")
		}
		return nil
	})
}

func (s *GormStore) RecentPendingOrder(ctx context.Context, userID string, totalCents int64, since time.Time) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND total_cents = ? AND created_at >= ?",
			userID, models.OrderStatusPending, totalCents, since).
		Order("created_at DESC").
		Preload("Items").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch recent pending order")
	}
	return &order, nil
}

// ----- Payments -----

func (s *GormStore) LatestPayment(ctx context.Context, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch latest payment")
	}
	return &payment, nil
}

func (s *GormStore) PaymentByGatewayTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	// Payments without a session yet carry an empty transaction id; an empty
	// lookup must not match them.
	if transactionID == "" {
		return nil, ErrNotFound
	}
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", transactionID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch payment by gateway transaction")
	}
	return &payment, nil
}

func (s *GormStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	if err := s.db.WithContext(ctx).Save(payment).Error; err != nil {
		return errors.Wrap(err, "save payment")
	}
	return nil
}

// ----- Inventory ledger -----

// ReserveStock decrements stock with a conditional update so that two
// concurrent checkouts cannot both pass a stale stock check. Zero affected
// rows means the requested quantity is no longer available.
func (s *GormStore) ReserveStock(ctx context.Context, productID uint, quantity int) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return errors.Wrap(res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return &InsufficientStockError{ProductID: productID, Quantity: quantity}
	}
	return nil
}

// RestoreStock is the unconditional inverse of ReserveStock, used by
// cancellation, compensation and refund paths.
func (s *GormStore) RestoreStock(ctx context.Context, productID uint, quantity int) error {
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
	if err != nil {
		return errors.Wrap(err, "restore stock")
	}
	return nil
}
