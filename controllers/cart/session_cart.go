package cartControllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradecove/marketplace-api/store"
)

// Session (pre-login) carts are staged in redis under a client-held session
// token and merged into the durable cart when the buyer authenticates.

func sessionToken(c *gin.Context) (string, bool) {
	token := c.Query("session_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_token is required"})
		return "", false
	}
	return token, true
}

// POST /session/cart
func UpdateSessionCartItem(sessions *store.SessionCartStore, st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
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

		if err := sessions.SetLine(c.Request.Context(), token, input.ProductID, input.Quantity); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_id": input.ProductID, "quantity": input.Quantity})
	}
}

// GET /session/cart
func GetSessionCart(sessions *store.SessionCartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			return
		}
		lines, err := sessions.Lines(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session cart"})
			return
		}
		c.JSON(http.StatusOK, lines)
	}
}

// DELETE /session/cart/:product_id
func DeleteSessionCartItem(sessions *store.SessionCartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			return
		}
		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return
		}
		if err := sessions.RemoveLine(c.Request.Context(), token, uint(productID)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session cart item"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session cart item deleted"})
	}
}

// DELETE /session/cart
func ClearSessionCart(sessions *store.SessionCartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			return
		}
		if err := sessions.Clear(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session cart cleared"})
	}
}

type mergeInput struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// POST /user/cart/merge — folds the staged session cart into the durable
// cart after login, then drops the staging key. Quantities for products
// already in the durable cart are added together.
func MergeSessionCart(sessions *store.SessionCartStore, st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			return
		}

		var input mergeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		lines, err := sessions.Lines(c.Request.Context(), input.SessionToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session cart"})
			return
		}
		if len(lines) > 0 {
			if err := st.MergeCartLines(c.Request.Context(), userID, lines); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to merge cart"})
				return
			}
		}
		// Staging key removal is best-effort; a leftover key only expires.
		_ = sessions.Clear(c.Request.Context(), input.SessionToken)

		c.JSON(http.StatusOK, gin.H{"message": "Cart merged", "merged_lines": len(lines)})
	}
}
