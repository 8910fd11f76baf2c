package cartControllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradecove/marketplace-api/store"
)

type CartItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

func userIDFrom(c *gin.Context) (string, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	id, ok := val.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return id, true
}

// POST /user/cart
func UpdateCartItem(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			return
		}

		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		products, err := st.ProductsByID(c.Request.Context(), []uint{input.ProductID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate product"})
			return
		}
		product, ok := products[input.ProductID]
		if !ok || !product.Purchasable() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product is not available"})
			return
		}

		item, err := st.UpsertCartItem(c.Request.Context(), userID, input.ProductID, input.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DELETE /user/cart/:product_id
func DeleteCartItem(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			return
		}

		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return
		}

		if err := st.RemoveCartItem(c.Request.Context(), userID, uint(productID)); err != nil {
			if err == store.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
	}
}

// DELETE /user/cart
func ClearUserCart(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			return
		}
		if err := st.ClearCart(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// GET /user/cart
func GetUserCart(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			return
		}
		items, err := st.CartItems(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
