package store

import (
	"context"
	"sync"
	"time"

	"github.com/tradecove/marketplace-api/models"
)

// Memory is an in-memory Store with the same transactional semantics as the
// gorm implementation: Transact serializes writers and rolls back all
// mutations made by a failing fn. It backs the service tests.
type Memory struct {
	mu    sync.Mutex
	state *memState
	inTx  bool
}

var _ Store = (*Memory)(nil)

type memState struct {
	products map[uint]models.Product
	carts    map[string][]models.CartItem
	orders   map[uint]*models.Order

	nextOrderID    uint
	nextItemID     uint
	nextPaymentID  uint
	nextCartItemID uint
}

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			products: make(map[uint]models.Product),
			carts:    make(map[string][]models.CartItem),
			orders:   make(map[uint]*models.Order),
		},
	}
}

// SeedProduct installs a product for tests.
func (m *Memory) SeedProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
}

// SeedCartItem appends a cart line for tests.
func (m *Memory) SeedCartItem(userID string, productID uint, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextCartItemID++
	m.state.carts[userID] = append(m.state.carts[userID], models.CartItem{
		ID:        m.state.nextCartItemID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	})
}

// StockOf returns the current stock for a product, for test assertions.
func (m *Memory) StockOf(productID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[productID].Stock
}

// OrderCount returns the number of persisted orders, for test assertions.
func (m *Memory) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (st *memState) clone() *memState {
	c := &memState{
		products:       make(map[uint]models.Product, len(st.products)),
		carts:          make(map[string][]models.CartItem, len(st.carts)),
		orders:         make(map[uint]*models.Order, len(st.orders)),
		nextOrderID:    st.nextOrderID,
		nextItemID:     st.nextItemID,
		nextPaymentID:  st.nextPaymentID,
		nextCartItemID: st.nextCartItemID,
	}
	for id, p := range st.products {
		c.products[id] = p
	}
	for user, items := range st.carts {
		c.carts[user] = append([]models.CartItem(nil), items...)
	}
	for id, o := range st.orders {
		c.orders[id] = cloneOrder(o)
	}
	return c
}

func cloneOrder(o *models.Order) *models.Order {
	clone := *o
	clone.Items = append([]models.OrderItem(nil), o.Items...)
	clone.Payments = append([]models.Payment(nil), o.Payments...)
	return &clone
}

func (m *Memory) Transact(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	tx := &Memory{state: m.state, inTx: true}
	if err := fn(tx); err != nil {
		m.state = snapshot // roll back
		return err
	}
	return nil
}

// run executes fn under the lock unless already inside a transaction.
func (m *Memory) run(fn func(st *memState) error) error {
	if m.inTx {
		return fn(m.state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// ----- Cart store -----

func (m *Memory) CartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	var out []models.CartItem
	err := m.run(func(st *memState) error {
		out = append([]models.CartItem(nil), st.carts[userID]...)
		return nil
	})
	return out, err
}

func (m *Memory) UpsertCartItem(ctx context.Context, userID string, productID uint, quantity int) (*models.CartItem, error) {
	var out models.CartItem
	err := m.run(func(st *memState) error {
		items := st.carts[userID]
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
				items[i].AddedAt = time.Now()
				out = items[i]
				return nil
			}
		}
		st.nextCartItemID++
		item := models.CartItem{
			ID:        st.nextCartItemID,
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		}
		st.carts[userID] = append(items, item)
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Memory) RemoveCartItem(ctx context.Context, userID string, productID uint) error {
	return m.run(func(st *memState) error {
		items := st.carts[userID]
		for i := range items {
			if items[i].ProductID == productID {
				st.carts[userID] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (m *Memory) ClearCart(ctx context.Context, userID string) error {
	return m.run(func(st *memState) error {
		delete(st.carts, userID)
		return nil
	})
}

func (m *Memory) MergeCartLines(ctx context.Context, userID string, lines []models.SessionCartLine) error {
	return m.run(func(st *memState) error {
		for _, line := range lines {
			merged := false
			items := st.carts[userID]
			for i := range items {
				if items[i].ProductID == line.ProductID {
					items[i].Quantity += line.Quantity
					merged = true
					break
				}
			}
			if !merged {
				st.nextCartItemID++
				st.carts[userID] = append(items, models.CartItem{
					ID:        st.nextCartItemID,
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
					AddedAt:   time.Now(),
				})
			}
		}
		return nil
	})
}

// ----- Product read-model -----

func (m *Memory) ProductsByID(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	out := make(map[uint]models.Product, len(ids))
	err := m.run(func(st *memState) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out[id] = p
			}
		}
		return nil
	})
	return out, err
}

// ----- Orders -----

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.run(func(st *memState) error {
		st.nextOrderID++
		order.ID = st.nextOrderID
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now()
		}
		for i := range order.Items {
			st.nextItemID++
			order.Items[i].ID = st.nextItemID
			order.Items[i].OrderID = order.ID
		}
		for i := range order.Payments {
			st.nextPaymentID++
			order.Payments[i].ID = st.nextPaymentID
			order.Payments[i].OrderID = order.ID
			if order.Payments[i].CreatedAt.IsZero() {
				order.Payments[i].CreatedAt = time.Now()
			}
		}
		st.orders[order.ID] = cloneOrder(order)
		return nil
	})
}

func (m *Memory) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	err := m.run(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return ErrNotFound
		}
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (m *Memory) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	err := m.run(func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, *cloneOrder(o))
			}
		}
		return nil
	})
	return out, err
}

func (m *Memory) SaveOrder(ctx context.Context, order *models.Order) error {
	return m.run(func(st *memState) error {
		existing, ok := st.orders[order.ID]
		if !ok {
			return ErrNotFound
		}
		existing.Status = order.Status
		existing.CompletedAt = order.CompletedAt
		return nil
	})
}

func (m *Memory) DeleteOrder(ctx context.Context, orderID uint) error {
	return m.run(func(st *memState) error {
		delete(st.orders, orderID)
		return nil
	})
}

func (m *Memory) RecentPendingOrder(ctx context.Context, userID string, totalCents int64, since time.Time) (*models.Order, error) {
	var out *models.Order
	err := m.run(func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID != userID || o.Status != models.OrderStatusPending {
				continue
			}
			if o.TotalCents != totalCents || o.CreatedAt.Before(since) {
				continue
			}
			if out == nil || o.CreatedAt.After(out.CreatedAt) {
				out = cloneOrder(o)
			}
		}
		if out == nil {
			return ErrNotFound
		}
		return nil
	})
	return out, err
}

// ----- Payments -----

func (m *Memory) LatestPayment(ctx context.Context, orderID uint) (*models.Payment, error) {
	var out *models.Payment
	err := m.run(func(st *memState) error {
		o, ok := st.orders[orderID]
		if !ok || len(o.Payments) == 0 {
			return ErrNotFound
		}
		latest := o.Payments[0]
		for _, p := range o.Payments[1:] {
			if p.CreatedAt.After(latest.CreatedAt) || (p.CreatedAt.Equal(latest.CreatedAt) && p.ID > latest.ID) {
				latest = p
			}
		}
		out = &latest
		return nil
	})
	return out, err
}

func (m *Memory) PaymentByGatewayTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	if transactionID == "" {
		return nil, ErrNotFound
	}
	var out *models.Payment
	err := m.run(func(st *memState) error {
		for _, o := range st.orders {
			for _, p := range o.Payments {
				if p.GatewayTransactionID == transactionID {
					clone := p
					out = &clone
					return nil
				}
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (m *Memory) SavePayment(ctx context.Context, payment *models.Payment) error {
	return m.run(func(st *memState) error {
		o, ok := st.orders[payment.OrderID]
		if !ok {
			return ErrNotFound
		}
		if payment.ID == 0 {
			st.nextPaymentID++
			payment.ID = st.nextPaymentID
			if payment.CreatedAt.IsZero() {
				payment.CreatedAt = time.Now()
			}
			o.Payments = append(o.Payments, *payment)
			return nil
		}
		for i := range o.Payments {
			if o.Payments[i].ID == payment.ID {
				o.Payments[i] = *payment
				return nil
			}
		}
		return ErrNotFound
	})
}

// ----- Inventory ledger -----

func (m *Memory) ReserveStock(ctx context.Context, productID uint, quantity int) error {
	return m.run(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok || p.Stock < quantity {
			return &InsufficientStockError{ProductID: productID, Quantity: quantity}
		}
		p.Stock -= quantity
		st.products[productID] = p
		return nil
	})
}

func (m *Memory) RestoreStock(ctx context.Context, productID uint, quantity int) error {
	return m.run(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok {
			return ErrNotFound
		}
		p.Stock += quantity
		st.products[productID] = p
		return nil
	})
}
