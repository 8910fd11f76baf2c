package routes

import (
	"github.com/gin-gonic/gin"

	paymentControllers "github.com/tradecove/marketplace-api/controllers/payment"
	"github.com/tradecove/marketplace-api/middleware"
	"github.com/tradecove/marketplace-api/services/reconcile"
)

func SetupPaymentRoutes(r *gin.Engine, deps Deps) {
	// Buyer-facing redirect callbacks from the hosted payment page.
	user := r.Group("/user/payments")
	user.Use(middleware.ValidateToken(deps.Config.Auth.JWTSecret))
	{
		user.GET("/success", paymentControllers.RedirectCallbackHandler(deps.Reconcile, reconcile.OutcomeSuccess))
		user.GET("/cancel", paymentControllers.RedirectCallbackHandler(deps.Reconcile, reconcile.OutcomeCancel))
	}

	// Server-to-server webhook, authenticated by body signature.
	r.POST("/webhooks/payment",
		paymentControllers.WebhookHandler(deps.Reconcile, deps.Config.Gateway.WebhookSecret, deps.Log))
}
