package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/store"
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewService(mem, zap.NewNop()), mem
}

// seedOrder creates a pending order with one payment bound to txn.
func seedOrder(t *testing.T, mem *store.Memory, userID, txn string, items ...models.OrderItem) *models.Order {
	t.Helper()
	var total int64
	for _, item := range items {
		total += item.TotalCents
	}
	order := &models.Order{
		OrderNumber: "ORD-20250901-TEST" + txn,
		UserID:      userID,
		Status:      models.OrderStatusPending,
		Items:       items,
		TotalCents:  total,
		Payments: []models.Payment{{
			PaymentID:            "pay-" + txn,
			GatewayTransactionID: txn,
			AmountCents:          total,
			Currency:             "USD",
			Status:               models.PaymentStatusPending,
		}},
	}
	require.NoError(t, mem.CreateOrder(context.Background(), order))
	return order
}

func TestWebhookPaymentCompleted(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 1, TotalCents: 1000})

	err := svc.HandleWebhook(context.Background(), gateway.Event{
		Type: gateway.EventPaymentCompleted,
		Data: gateway.EventData{ID: "txn-1"},
	})
	require.NoError(t, err)

	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, got.Status)
	require.NotNil(t, got.CompletedAt)

	payment, err := mem.LatestPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.ProcessedAt)
}

func TestWebhookDuplicateCompletedIsNoOp(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 2, TotalCents: 2000})
	mem.SeedProduct(models.Product{ID: 1, Name: "Mug", Stock: 0, Published: true})

	event := gateway.Event{Type: gateway.EventPaymentCompleted, Data: gateway.EventData{ID: "txn-1"}}
	require.NoError(t, svc.HandleWebhook(context.Background(), event))

	first, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	stamp := *first.CompletedAt

	// Same delivery again: no state change, no error back to the provider.
	require.NoError(t, svc.HandleWebhook(context.Background(), event))

	second, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, stamp, *second.CompletedAt, "completed_at must not move on redelivery")
	assert.Equal(t, models.OrderStatusProcessing, second.Status)
	assert.Equal(t, 0, mem.StockOf(1), "no inventory effect from redelivery")
}

func TestWebhookUnknownTransactionIgnored(t *testing.T) {
	svc, _ := newService(t)
	err := svc.HandleWebhook(context.Background(), gateway.Event{
		Type: gateway.EventPaymentCompleted,
		Data: gateway.EventData{ID: "txn-not-ours"},
	})
	assert.NoError(t, err)
}

func TestWebhookUnknownEventTypeIgnored(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 1, TotalCents: 500})

	err := svc.HandleWebhook(context.Background(), gateway.Event{
		Type: "payment.disputed",
		Data: gateway.EventData{ID: "txn-1"},
	})
	require.NoError(t, err)

	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
}

func TestWebhookPaymentFailedKeepsOrderPending(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 2, TotalCents: 2000})
	mem.SeedProduct(models.Product{ID: 1, Name: "Mug", Stock: 3, Published: true})

	err := svc.HandleWebhook(context.Background(), gateway.Event{
		Type: gateway.EventPaymentFailed,
		Data: gateway.EventData{ID: "txn-1"},
	})
	require.NoError(t, err)

	payment, err := mem.LatestPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	// Order stays pending with its reservation intact: the buyer may retry.
	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Equal(t, 3, mem.StockOf(1))
}

func TestWebhookRefundRestoresInventory(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 3, TotalCents: 3000},
		models.OrderItem{ProductID: 2, Quantity: 1, TotalCents: 1500},
		models.OrderItem{ProductID: 3, Quantity: 2, TotalCents: 1800, Digital: true},
	)
	mem.SeedProduct(models.Product{ID: 1, Name: "Mug", Stock: 0, Published: true})
	mem.SeedProduct(models.Product{ID: 2, Name: "Plate", Stock: 5, Published: true})
	mem.SeedProduct(models.Product{ID: 3, Name: "E-Book", Stock: 0, Published: true, Digital: true})

	// Order is mid-fulfilment when the refund arrives.
	complete := gateway.Event{Type: gateway.EventPaymentCompleted, Data: gateway.EventData{ID: "txn-1"}}
	require.NoError(t, svc.HandleWebhook(context.Background(), complete))

	refund := gateway.Event{Type: gateway.EventPaymentRefunded, Data: gateway.EventData{ID: "txn-1"}}
	require.NoError(t, svc.HandleWebhook(context.Background(), refund))

	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, got.Status)

	payment, err := mem.LatestPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)

	// Physical lines restored by their ordered quantities, digital untouched.
	assert.Equal(t, 3, mem.StockOf(1))
	assert.Equal(t, 6, mem.StockOf(2))
	assert.Equal(t, 0, mem.StockOf(3))

	// Refund redelivery must not double-restore.
	require.NoError(t, svc.HandleWebhook(context.Background(), refund))
	assert.Equal(t, 3, mem.StockOf(1))
	assert.Equal(t, 6, mem.StockOf(2))
}

func TestRedirectSuccess(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 1, TotalCents: 1000})

	require.NoError(t, svc.HandleRedirect(context.Background(), "buyer-1", order.ID, OutcomeSuccess))

	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, got.Status)
}

func TestRedirectCancelKeepsOrderPending(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 1, TotalCents: 1000})

	require.NoError(t, svc.HandleRedirect(context.Background(), "buyer-1", order.ID, OutcomeCancel))

	payment, err := mem.LatestPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, payment.Status)

	got, err := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
}

func TestRedirectAuthorization(t *testing.T) {
	svc, mem := newService(t)
	order := seedOrder(t, mem, "buyer-1", "txn-1",
		models.OrderItem{ProductID: 1, Quantity: 1, TotalCents: 1000})

	err := svc.HandleRedirect(context.Background(), "buyer-2", order.ID, OutcomeSuccess)
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	// Nothing mutated.
	got, lookupErr := mem.OrderByID(context.Background(), order.ID)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.OrderStatusPending, got.Status)
}

func TestRedirectMissingOrderAndPayment(t *testing.T) {
	svc, mem := newService(t)

	err := svc.HandleRedirect(context.Background(), "buyer-1", 42, OutcomeSuccess)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order := &models.Order{OrderNumber: "ORD-X", UserID: "buyer-1", Status: models.OrderStatusPending}
	require.NoError(t, mem.CreateOrder(context.Background(), order))

	err = svc.HandleRedirect(context.Background(), "buyer-1", order.ID, OutcomeSuccess)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
