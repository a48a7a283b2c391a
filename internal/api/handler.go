package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/cart"
	"storefront/internal/discount"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type Checkout interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*service.CreateOrderResponse, error)
	ConfirmOrder(ctx context.Context, req *service.ConfirmOrderRequest) (*service.ConfirmOrderResponse, error)
	LegacyCheckout(ctx context.Context, items []models.CartItem) (string, error)
}

type Payments interface {
	CreatePaymentIntent(ctx context.Context, req *service.CreatePaymentIntentRequest) (*models.PaymentIntent, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	PublishableKey() string
}

type Orders interface {
	GetOrder(ctx context.Context, orderID int64) (*models.OrderRecord, error)
}

// CartSessions returns the persistence port of one cart session
type CartSessions func(sessionID string) cart.Persistence

// Dependencies wires the handler. Orders and Carts may be nil, which disables their routes.
type Dependencies struct {
	Catalog        Catalog
	Checkout       Checkout
	Payments       Payments
	Orders         Orders
	Carts          CartSessions
	Codes          *discount.Codes
	CurrencySymbol string
	AllowedOrigins []string
	// ReadyChecks are run by /ready, keyed by dependency name
	ReadyChecks map[string]func(context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:   deps,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(util.GinLogger())
	if len(h.deps.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = h.deps.AllowedOrigins
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, cartSessionHeader)
		corsConfig.ExposeHeaders = []string{cartSessionHeader}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/printful", h.listProducts)
		api.POST("/printful/create-order", h.createOrder)
		api.POST("/printful/confirm-order", h.confirmOrder)
		api.POST("/checkout", h.legacyCheckout)

		api.POST("/stripe/payment-intent", h.createPaymentIntent)
		api.POST("/stripe/webhook", h.stripeWebhook)
		api.GET("/stripe/config", h.stripeConfig)

		api.GET("/discounts/:code", h.lookupDiscount)

		if h.deps.Carts != nil {
			api.GET("/cart", h.getCart)
			api.POST("/cart/items", h.addCartItem)
			api.DELETE("/cart/items/:index", h.removeCartItem)
			api.DELETE("/cart", h.clearCart)
		}

		if h.deps.Orders != nil {
			api.GET("/orders/:id", h.getOrder)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck runs every registered dependency check
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.deps.ReadyChecks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
