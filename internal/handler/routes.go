package handler

import (
	"storefront-service/internal/middleware"
	"storefront-service/internal/validation"

	"github.com/labstack/echo/v4"
)

// Routes mounts every route on e.
func (h *Handler) Routes(e *echo.Echo) {
	e.Validator = validation.New()

	rl := h.cfg.RateLimit
	authLimit := middleware.RateLimit(h.cache, middleware.ScopeAuth, rl.AuthLimit, rl.AuthWindow)
	strictLimit := middleware.RateLimit(h.cache, middleware.ScopeStrict, rl.StrictLimit, rl.StrictWindow)
	cached := middleware.ResponseCache(h.cache, h.cfg.Cache.TTL)
	requireAuth := h.auth.RequireAuth

	// Public routes
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", MetricsHandler)

	api := e.Group("/api",
		middleware.CSRF(h.cfg.Server.IsProduction()),
		middleware.RateLimit(h.cache, middleware.ScopeGeneral, rl.GeneralLimit, rl.GeneralWindow),
	)
	api.GET("/csrf", h.CSRFToken)

	auth := api.Group("/auth", authLimit)
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/verify-email", h.VerifyEmail)
	auth.POST("/resend-verification", h.ResendVerification)
	auth.POST("/forgot-password", h.ForgotPassword, strictLimit)
	auth.POST("/reset-password", h.ResetPassword)
	api.GET("/auth/me", h.Me, requireAuth)
	api.POST("/auth/change-password", h.ChangePassword, requireAuth, authLimit)

	// Catalog
	api.GET("/products", h.ListProducts, cached)
	api.GET("/products/:slug", h.GetProduct, cached)
	api.GET("/categories", h.ListCategories, cached)
	api.GET("/products/:id/reviews", h.ListReviews)
	api.POST("/products/:id/reviews", h.SaveReview, requireAuth)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", h.GetCart)
	cart.POST("", h.AddToCart)
	cart.PUT("", h.ReplaceCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/merge", h.MergeCart)
	cart.PUT("/:id", h.UpdateCartItem)
	cart.DELETE("/:id", h.RemoveCartItem)

	wishlist := api.Group("/wishlist", requireAuth)
	wishlist.GET("", h.GetWishlist)
	wishlist.POST("", h.AddToWishlist)
	wishlist.POST("/merge", h.MergeWishlist)
	wishlist.DELETE("/:productId", h.RemoveFromWishlist)

	api.POST("/discount/validate", h.ValidateDiscount)
	api.POST("/discount/apply", h.ApplyDiscount, requireAuth)

	api.GET("/payment/config", h.PaymentConfig)
	pay := api.Group("/payment", requireAuth)
	pay.POST("/stripe/create-intent", h.CreateStripeIntent)
	pay.POST("/stripe/confirm", h.ConfirmStripe)
	pay.POST("/paypal/create-order", h.CreatePayPalOrder)
	pay.POST("/paypal/capture-order", h.CapturePayPalOrder)

	api.GET("/orders/track", h.TrackOrder, strictLimit)
	myOrders := api.Group("/orders", requireAuth)
	myOrders.GET("", h.ListMyOrders)
	myOrders.GET("/:id", h.GetMyOrder)

	api.POST("/newsletter/subscribe", h.Subscribe, strictLimit)
	api.POST("/newsletter/unsubscribe", h.Unsubscribe, strictLimit)
	api.POST("/contact", h.SubmitContact, strictLimit)

	admin := api.Group("/admin", h.auth.RequireAdmin)
	admin.GET("/products", h.AdminListProducts)
	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.GET("/low-stock", h.LowStock)

	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)

	admin.GET("/discount-codes", h.ListDiscountCodes)
	admin.POST("/discount-codes", h.CreateDiscountCode)
	admin.PATCH("/discount-codes/:id", h.UpdateDiscountCode)
	admin.DELETE("/discount-codes/:id", h.DeleteDiscountCode)

	admin.GET("/orders", h.AdminListOrders)
	admin.POST("/orders/update-status", h.UpdateOrderStatus)
	admin.GET("/orders/:id", h.AdminGetOrder)
	admin.DELETE("/orders/:id", h.AdminDeleteOrder)

	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id/role", h.SetUserRole)
	admin.DELETE("/users/:id", h.DeleteUser)

	admin.DELETE("/reviews/:id", h.DeleteReview)

	admin.GET("/contact", h.ListContactMessages)
	admin.PATCH("/contact/:id/read", h.MarkContactRead)
	admin.DELETE("/contact/:id", h.DeleteContactMessage)

	admin.GET("/newsletter", h.ListSubscribers)
	admin.POST("/newsletter/campaign", h.SendCampaign)
}
