package checkoutControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradecove/marketplace-api/models"
	"github.com/tradecove/marketplace-api/services/checkout"
)

type BillingInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Postcode     string `json:"postcode"`
}

// POST /user/checkout
func CheckoutHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID, _ := userIDVal.(string)

		var input BillingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		result, err := svc.Checkout(c.Request.Context(), userID, models.BillingInfo{
			Name:         input.Name,
			Email:        input.Email,
			Phone:        input.Phone,
			AddressLine1: input.AddressLine1,
			AddressLine2: input.AddressLine2,
			City:         input.City,
			Country:      input.Country,
			Postcode:     input.Postcode,
		})
		if err != nil {
			status, msg := checkoutErrorResponse(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"order_id":     result.Order.ID,
			"order_number": result.Order.OrderNumber,
			"payment_url":  result.RedirectURL,
			"session_id":   result.SessionID,
			"reused":       result.Reused,
		})
	}
}

// checkoutErrorResponse maps the checkout error taxonomy onto HTTP:
// user-correctable validation failures are 400, a failed gateway session is
// a retryable 502, anything else is a generic 500.
func checkoutErrorResponse(err error) (int, string) {
	var unavailable *checkout.ProductUnavailableError
	var stock *checkout.InsufficientStockError
	var session *checkout.PaymentSessionError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "Your cart is empty"
	case errors.As(err, &unavailable):
		return http.StatusBadRequest, unavailable.Error()
	case errors.As(err, &stock):
		return http.StatusBadRequest, stock.Error()
	case errors.As(err, &session):
		return http.StatusBadGateway, "Payment service is unavailable, please try again"
	default:
		return http.StatusInternalServerError, "Checkout failed"
	}
}
