// Package routes wires the HTTP surface onto a gin engine.
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers/payment"
	"khushin_back_end/internal/handlers/product"
	"khushin_back_end/internal/handlers/user"
	"khushin_back_end/internal/metrics"
	"khushin_back_end/internal/middleware"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	FrontendURL string
	Auth        *middleware.Auth
	Limiter     *middleware.RateLimiter
	Health      map[string]HealthCheck

	User    *user.Handler
	Product *product.Handler
	Payment *payment.Handler
}

// New builds the engine with every route registered.
func New(o Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{o.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", payment.IdempotencyHeader},
		ExposeHeaders:    []string{"X-Auth-Token", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(o.Auth.Authenticate())

	r.GET("/health", health(o.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", o.User.WebSocket)

	api := r.Group("/api")

	// ===== Auth =====
	api.POST("/register", o.Limiter.Register(), o.User.Register)
	api.POST("/login", o.Limiter.Login(), o.User.Login)
	api.POST("/logout", o.User.Logout)
	api.POST("/guest-login", o.Limiter.Register(), o.User.GuestLogin)
	api.GET("/auth/:provider", o.User.BeginOAuth)
	api.GET("/auth/:provider/callback", o.User.OAuthCallback)

	// ===== Catalogue =====
	api.GET("/products", o.Product.List)
	api.GET("/products/search", o.Limiter.Search(), o.Product.Search)
	api.GET("/products/:id", o.Product.Get)
	api.GET("/shipping/quote", o.Payment.ShippingQuote)

	authed := api.Group("", middleware.RequireAuth())
	authed.GET("/user", o.User.CurrentUser)
	authed.POST("/convert-guest", o.User.ConvertGuest)

	// ===== Cart =====
	cart := authed.Group("/cart")
	cart.GET("", o.User.GetCart)
	cart.POST("", o.Limiter.Cart(), o.User.AddToCart)
	cart.DELETE("", o.Limiter.Cart(), o.User.ClearCart)
	cart.DELETE("/:productId", o.Limiter.Cart(), o.User.RemoveFromCart)
	cart.PATCH("/:productId/quantity", o.Limiter.Cart(), o.User.UpdateQuantity)
	cart.PATCH("/:productId/gift", o.Limiter.Cart(), o.User.UpdateGift)

	// ===== Orders & payment =====
	authed.POST("/checkout", o.Payment.Checkout)
	authed.GET("/payment/:ref", o.Payment.PaymentDetails)
	authed.POST("/payment/:ref/status", o.Payment.UpdateStatus)
	authed.GET("/orders", o.User.ListOrders)
	authed.GET("/orders/:orderRef", o.User.GetOrder)
	authed.POST("/orders/:orderRef/returns", o.Payment.CreateReturn)
	authed.GET("/returns", o.Payment.ListReturns)

	// ===== Loyalty =====
	authed.GET("/loyalty", o.User.Loyalty)
	authed.GET("/referral", o.User.Referral)
	authed.POST("/referral/redeem", o.User.RedeemReferral)

	return r
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		services := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WithError(err).WithField("service", name).Warn("⚠️  Health check failed")
				services[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			services[name] = "up"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "services": services})
	}
}
