package controllers

import (
	"github.com/gin-gonic/gin"

	"storefront/middlewares"
)

// RegisterRoutes mounts the storefront API. Paths under /rest/v1 and
// /functions/v1 keep the URLs the SPA already calls.
func (ctl *Controller) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	auth := middlewares.AuthMiddleware(jwtSecret)
	adminOnly := middlewares.RequireAdmin(ctl.Admins)

	functions := r.Group("/functions/v1")
	{
		functions.POST("/create-payment-intent", auth, ctl.CreatePaymentIntent)
		functions.POST("/stripe-webhook", ctl.StripeWebhook)
		functions.POST("/create-admin", ctl.CreateAdmin)
		functions.POST("/admin-login", ctl.AdminLogin)
	}

	rest := r.Group("/rest/v1", auth)
	{
		rest.GET("/cart", ctl.GetCart)
		rest.POST("/rpc/add_to_cart", ctl.AddToCart)
		rest.POST("/rpc/update_cart_item_quantity", ctl.UpdateCartItemQuantity)
		rest.POST("/rpc/remove_cart_item", ctl.RemoveCartItem)
		rest.POST("/rpc/clear_user_cart", ctl.ClearUserCart)
		rest.POST("/rpc/update_admin_last_login", adminOnly, ctl.UpdateAdminLastLogin)
	}

	api := r.Group("/api", auth)
	{
		api.GET("/orders", ctl.GetUserOrders)
		api.GET("/orders/:id", ctl.GetOrderDetails)
		api.GET("/profile", ctl.GetProfile)
	}

	admin := r.Group("/api/admin", auth, adminOnly)
	{
		admin.GET("/orders", ctl.AdminListOrders)
		admin.GET("/orders/:id", ctl.AdminGetOrder)
		admin.PUT("/orders/:id/status", ctl.AdminUpdateOrderStatus)
	}
}
