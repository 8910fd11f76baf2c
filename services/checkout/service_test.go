package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/store"
)

type fakeGateway struct {
	mu      sync.Mutex
	err     error
	calls   int
	lastReq gateway.SessionRequest
}

func (f *fakeGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("sess_%d", f.calls)
	return &gateway.Session{ID: id, RedirectURL: "https://pay.example.com/s/" + id}, nil
}

func newService(t *testing.T) (*Service, *store.Memory, *fakeGateway) {
	t.Helper()
	mem := store.NewMemory()
	gw := &fakeGateway{}
	svc := NewService(mem, gw, Config{
		Currency:   "USD",
		SuccessURL: "https://shop.example.com/payments/success",
		CancelURL:  "https://shop.example.com/payments/cancel",
	}, zap.NewNop())
	return svc, mem, gw
}

func billing() models.BillingInfo {
	return models.BillingInfo{Name: "Ada Buyer", Email: "ada@example.com"}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Checkout(context.Background(), "buyer-1", billing())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutUnpublishedProduct(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Ghost Lamp", PriceCents: 2500, Stock: 5, Published: false})
	mem.SeedCartItem("buyer-1", 1, 1)

	_, err := svc.Checkout(context.Background(), "buyer-1", billing())

	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Ghost Lamp", unavailable.Name)
	assert.Equal(t, 0, mem.OrderCount())
}

func TestCheckoutInsufficientStock(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Desk", PriceCents: 10000, Stock: 2, Published: true})
	mem.SeedCartItem("buyer-1", 1, 3)

	_, err := svc.Checkout(context.Background(), "buyer-1", billing())

	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "Desk", stock.Name)
	assert.Equal(t, 3, stock.Requested)
	assert.Equal(t, 2, mem.StockOf(1))
	assert.Equal(t, 0, mem.OrderCount())
}

func TestCheckoutSuccess(t *testing.T) {
	svc, mem, gw := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Chair", PriceCents: 4500, Stock: 10, Published: true})
	mem.SeedProduct(models.Product{ID: 2, Name: "E-Book", PriceCents: 900, Stock: 0, Published: true, Digital: true})
	mem.SeedCartItem("buyer-1", 1, 2)
	mem.SeedCartItem("buyer-1", 2, 1)

	result, err := svc.Checkout(context.Background(), "buyer-1", billing())
	require.NoError(t, err)

	assert.Equal(t, int64(2*4500+900), result.Order.TotalCents)
	assert.Equal(t, result.Order.SubtotalCents, result.Order.TotalCents)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)
	assert.NotEmpty(t, result.Order.OrderNumber)
	assert.NotEmpty(t, result.RedirectURL)
	assert.False(t, result.Reused)

	// Physical line reserved, digital line untouched.
	assert.Equal(t, 8, mem.StockOf(1))
	assert.Equal(t, 0, mem.StockOf(2))

	// Cart cleared after session creation.
	items, err := mem.CartItems(context.Background(), "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	// Session recorded on the pending payment.
	payment, err := mem.LatestPayment(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, payment.GatewayTransactionID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, result.Order.TotalCents, payment.AmountCents)

	// Metadata carries the internal correlation ids.
	assert.Equal(t, fmt.Sprintf("%d", result.Order.ID), gw.lastReq.Metadata["order_id"])
	assert.Equal(t, result.Order.OrderNumber, gw.lastReq.Metadata["order_number"])
}

func TestCheckoutSnapshotsPricesAtOrderTime(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Vase", PriceCents: 3000, Stock: 5, Published: true})
	mem.SeedCartItem("buyer-1", 1, 1)

	result, err := svc.Checkout(context.Background(), "buyer-1", billing())
	require.NoError(t, err)

	// Later price changes must not affect the snapshot.
	mem.SeedProduct(models.Product{ID: 1, Name: "Vase", PriceCents: 9999, Stock: 4, Published: true})

	order, err := mem.OrderByID(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(3000), order.Items[0].ProductPriceCents)
	assert.Equal(t, "Vase", order.Items[0].ProductName)
}

// staleStockStore reports inflated stock from the read-model, standing in
// for a concurrent sale that lands between the stock pre-check and the
// reservation transaction.
type staleStockStore struct {
	*store.Memory
}

func (s *staleStockStore) ProductsByID(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	products, err := s.Memory.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range products {
		p.Stock += 100
		products[id] = p
	}
	return products, nil
}

func TestCheckoutAtomicityAcrossLines(t *testing.T) {
	mem := store.NewMemory()
	gw := &fakeGateway{}
	svc := NewService(&staleStockStore{mem}, gw, Config{Currency: "USD"}, zap.NewNop())

	mem.SeedProduct(models.Product{ID: 1, Name: "Mug", PriceCents: 800, Stock: 10, Published: true})
	mem.SeedProduct(models.Product{ID: 2, Name: "Plate", PriceCents: 1200, Stock: 3, Published: true})
	mem.SeedCartItem("buyer-1", 1, 2)
	mem.SeedCartItem("buyer-1", 2, 4) // passes the stale pre-check, fails the conditional decrement

	_, err := svc.Checkout(context.Background(), "buyer-1", billing())

	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, uint(2), stock.ProductID)

	// The first line's decrement rolled back with the rest of the unit; no
	// order rows remain and no session was attempted.
	assert.Equal(t, 10, mem.StockOf(1))
	assert.Equal(t, 3, mem.StockOf(2))
	assert.Equal(t, 0, mem.OrderCount())
	assert.Equal(t, 0, gw.calls)
}

func TestCheckoutCompensatesOnGatewayFailure(t *testing.T) {
	svc, mem, gw := newService(t)
	gw.err = &gateway.Error{Code: "http_503", Message: "provider down"}

	mem.SeedProduct(models.Product{ID: 1, Name: "Lamp", PriceCents: 5000, Stock: 1, Published: true})
	mem.SeedCartItem("buyer-1", 1, 1)

	_, err := svc.Checkout(context.Background(), "buyer-1", billing())

	var session *PaymentSessionError
	require.ErrorAs(t, err, &session)

	// Reservation fully compensated: stock back, no order graph left.
	assert.Equal(t, 1, mem.StockOf(1))
	assert.Equal(t, 0, mem.OrderCount())

	// Cart is kept so the buyer can retry.
	items, cartErr := mem.CartItems(context.Background(), "buyer-1")
	require.NoError(t, cartErr)
	assert.Len(t, items, 1)
}

func TestCheckoutDuplicateSubmissionReusesOrder(t *testing.T) {
	svc, mem, gw := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Rug", PriceCents: 7500, Stock: 5, Published: true})
	mem.SeedCartItem("buyer-1", 1, 1)

	first, err := svc.Checkout(context.Background(), "buyer-1", billing())
	require.NoError(t, err)

	// Browser back-button resubmission: same cart again inside the window.
	mem.SeedCartItem("buyer-1", 1, 1)
	second, err := svc.Checkout(context.Background(), "buyer-1", billing())
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 1, mem.OrderCount())

	// Stock decremented exactly once.
	assert.Equal(t, 4, mem.StockOf(1))

	// The pending payment now points at the fresh session.
	payment, err := mem.LatestPayment(context.Background(), first.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, payment.GatewayTransactionID)
	assert.Equal(t, 2, gw.calls)
}

func TestConcurrentCheckoutsLastUnit(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.SeedProduct(models.Product{ID: 1, Name: "Last Unit", PriceCents: 100, Stock: 1, Published: true})

	const buyers = 8
	for i := 0; i < buyers; i++ {
		mem.SeedCartItem(fmt.Sprintf("buyer-%d", i), 1, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), fmt.Sprintf("buyer-%d", i), billing())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stock *InsufficientStockError
		assert.ErrorAs(t, err, &stock)
	}
	assert.Equal(t, 1, succeeded, "exactly one reservation of the last unit must win")
	assert.Equal(t, 0, mem.StockOf(1))
	assert.Equal(t, 1, mem.OrderCount())
}
