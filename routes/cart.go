package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/tradecove/marketplace-api/controllers/cart"
	"github.com/tradecove/marketplace-api/middleware"
)

func SetupCartRoutes(r *gin.Engine, deps Deps) {
	// Durable cart, JWT-protected.
	user := r.Group("/user")
	user.Use(middleware.ValidateToken(deps.Config.Auth.JWTSecret))
	{
		user.GET("/cart", cartControllers.GetUserCart(deps.Store))
		user.POST("/cart", cartControllers.UpdateCartItem(deps.Store))
		user.DELETE("/cart", cartControllers.ClearUserCart(deps.Store))
		user.DELETE("/cart/:product_id", cartControllers.DeleteCartItem(deps.Store))
		user.POST("/cart/merge", cartControllers.MergeSessionCart(deps.SessionCart, deps.Store))
	}

	// Pre-login staging cart, keyed by session token.
	session := r.Group("/session")
	{
		session.GET("/cart", cartControllers.GetSessionCart(deps.SessionCart))
		session.POST("/cart", cartControllers.UpdateSessionCartItem(deps.SessionCart, deps.Store))
		session.DELETE("/cart", cartControllers.ClearSessionCart(deps.SessionCart))
		session.DELETE("/cart/:product_id", cartControllers.DeleteSessionCartItem(deps.SessionCart))
	}
}
