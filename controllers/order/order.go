package orderControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradecove/marketplace-api/services/orders"
)

func buyerAndOrder(c *gin.Context) (string, uint, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", 0, false
	}
	userID, _ := userIDVal.(string)

	orderID, err := strconv.ParseUint(c.Param("orderID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid orderID"})
		return "", 0, false
	}
	return userID, uint(orderID), true
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, orders.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, orders.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Order is no longer pending"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order operation failed"})
	}
}

// GET /user/orders
func GetUserOrdersHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID, _ := userIDVal.(string)

		list, err := svc.ListForBuyer(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GET /user/orders/:orderID
func GetOrderByIDHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, orderID, ok := buyerAndOrder(c)
		if !ok {
			return
		}
		order, err := svc.GetForBuyer(c.Request.Context(), userID, orderID)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// POST /user/orders/:orderID/cancel
func CancelOrderHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, orderID, ok := buyerAndOrder(c)
		if !ok {
			return
		}
		if err := svc.Cancel(c.Request.Context(), userID, orderID); err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
	}
}

// DELETE /user/orders/:orderID
func DeleteOrderHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, orderID, ok := buyerAndOrder(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), userID, orderID); err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
	}
}
