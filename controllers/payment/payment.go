package paymentControllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/services/reconcile"
)

// GET /user/payments/success?order_id= and /user/payments/cancel?order_id=
// are the buyer-facing redirect callbacks from the hosted payment page.
func RedirectCallbackHandler(svc *reconcile.Service, outcome reconcile.Outcome) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID, _ := userIDVal.(string)

		orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order_id"})
			return
		}

		err = svc.HandleRedirect(c.Request.Context(), userID, uint(orderID), outcome)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "Payment " + string(outcome) + " recorded"})
		case errors.Is(err, reconcile.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, reconcile.ErrNotOrderOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		case errors.Is(err, reconcile.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment record not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment callback"})
		}
	}
}

// POST /webhooks/payment receives provider events. The raw body is read
// before parsing because the signature covers the exact bytes on the wire.
// With no secret configured (local/dev) unsigned payloads are accepted.
func WebhookHandler(svc *reconcile.Service, secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		if secret != "" {
			sig := c.GetHeader("X-Gateway-Signature")
			if !gateway.VerifySignature(body, sig, secret) {
				log.Warn("webhook rejected: bad signature", zap.Int("body_bytes", len(body)))
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
				return
			}
		}

		event, err := gateway.ParseEvent(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		if err := svc.HandleWebhook(c.Request.Context(), *event); err != nil {
			log.Error("webhook processing failed",
				zap.String("type", event.Type), zap.String("transaction_id", event.Data.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
			return
		}

		// Idempotent no-ops and unknown transaction ids land here too; the
		// provider should not retry those.
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}
