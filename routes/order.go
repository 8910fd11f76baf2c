package routes

import (
	"github.com/gin-gonic/gin"

	checkoutControllers "github.com/tradecove/marketplace-api/controllers/checkout"
	orderControllers "github.com/tradecove/marketplace-api/controllers/order"
	"github.com/tradecove/marketplace-api/middleware"
)

func SetupOrderRoutes(r *gin.Engine, deps Deps) {
	user := r.Group("/user")
	user.Use(middleware.ValidateToken(deps.Config.Auth.JWTSecret))
	{
		user.POST("/checkout", checkoutControllers.CheckoutHandler(deps.Checkout))

		user.GET("/orders", orderControllers.GetUserOrdersHandler(deps.Orders))
		user.GET("/orders/:orderID", orderControllers.GetOrderByIDHandler(deps.Orders))
		user.POST("/orders/:orderID/cancel", orderControllers.CancelOrderHandler(deps.Orders))
		user.DELETE("/orders/:orderID", orderControllers.DeleteOrderHandler(deps.Orders))
	}
}
