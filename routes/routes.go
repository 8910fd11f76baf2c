package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradecove/marketplace-api/config"
	"github.com/tradecove/marketplace-api/services/checkout"
	"github.com/tradecove/marketplace-api/services/orders"
	"github.com/tradecove/marketplace-api/services/reconcile"
	"github.com/tradecove/marketplace-api/store"
)

// Deps bundles everything route setup needs.
type Deps struct {
	Store       store.Store
	SessionCart *store.SessionCartStore
	Checkout    *checkout.Service
	Reconcile   *reconcile.Service
	Orders      *orders.Service
	Config      *config.Config
	Log         *zap.Logger
}

// SetupRoutes is the single entry point that wires up all route groups.
func SetupRoutes(r *gin.Engine, deps Deps) {
	SetupCartRoutes(r, deps)
	SetupOrderRoutes(r, deps)
	SetupPaymentRoutes(r, deps)
}
