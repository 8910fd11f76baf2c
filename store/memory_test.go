package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecove/marketplace-api/models"
)

func TestReserveStockConditional(t *testing.T) {
	mem := NewMemory()
	mem.SeedProduct(models.Product{ID: 1, Stock: 2})

	require.NoError(t, mem.ReserveStock(context.Background(), 1, 2))
	assert.Equal(t, 0, mem.StockOf(1))

	err := mem.ReserveStock(context.Background(), 1, 1)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, uint(1), ise.ProductID)
	assert.Equal(t, 0, mem.StockOf(1), "failed reserve must not go negative")

	require.NoError(t, mem.RestoreStock(context.Background(), 1, 2))
	assert.Equal(t, 2, mem.StockOf(1))
}

func TestTransactRollsBackOnError(t *testing.T) {
	mem := NewMemory()
	mem.SeedProduct(models.Product{ID: 1, Stock: 5})

	sentinel := errors.New("abort")
	err := mem.Transact(context.Background(), func(tx Store) error {
		require.NoError(t, tx.ReserveStock(context.Background(), 1, 3))
		if err := tx.CreateOrder(context.Background(), &models.Order{OrderNumber: "ORD-X", UserID: "b"}); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	assert.Equal(t, 5, mem.StockOf(1), "decrement rolled back")
	assert.Equal(t, 0, mem.OrderCount(), "order creation rolled back")
}

func TestMergeCartLinesAddsQuantities(t *testing.T) {
	mem := NewMemory()
	mem.SeedCartItem("buyer-1", 1, 2)

	err := mem.MergeCartLines(context.Background(), "buyer-1", []models.SessionCartLine{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)

	items, err := mem.CartItems(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	byProduct := map[uint]int{}
	for _, item := range items {
		byProduct[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 5, byProduct[1])
	assert.Equal(t, 1, byProduct[2])
}

func TestLatestPaymentPicksNewestAttempt(t *testing.T) {
	mem := NewMemory()
	order := &models.Order{
		OrderNumber: "ORD-Y", UserID: "buyer-1", Status: models.OrderStatusPending,
		Payments: []models.Payment{{PaymentID: "pay-1", Status: models.PaymentStatusFailed}},
	}
	require.NoError(t, mem.CreateOrder(context.Background(), order))

	retry := &models.Payment{OrderID: order.ID, PaymentID: "pay-2", Status: models.PaymentStatusPending}
	require.NoError(t, mem.SavePayment(context.Background(), retry))

	latest, err := mem.LatestPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay-2", latest.PaymentID)
}
