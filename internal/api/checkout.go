package api

import (
	"errors"
	"net/http"

	"storefront/internal/models"
	"storefront/internal/printful"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// listProducts returns the shaped catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.deps.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.Error("Error fetching Printful products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// createOrder places a provider order from a cart and shipping address
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.deps.Checkout.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeCheckoutError(c, err, "Failed to create Printful order")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// confirmOrder confirms an existing draft order, passing the provider's status through
func (h *Handler) confirmOrder(c *gin.Context) {
	var req service.ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.deps.Checkout.ConfirmOrder(c.Request.Context(), &req)
	if err != nil {
		if apiErr, ok := printful.IsAPIError(err); ok {
			status := apiErr.StatusCode
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": apiErr.Message})
			return
		}
		h.writeCheckoutError(c, err, "Failed to confirm Printful order")
		return
	}

	c.JSON(http.StatusOK, resp)
}

type legacyCheckoutRequest struct {
	Items []models.CartItem `json:"items"`
}

// legacyCheckout creates a draft order paid through the provider's dashboard
func (h *Handler) legacyCheckout(c *gin.Context) {
	var req legacyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	approvalURL, err := h.deps.Checkout.LegacyCheckout(c.Request.Context(), req.Items)
	if err != nil {
		h.writeCheckoutError(c, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"approvalUrl": approvalURL})
}

// writeCheckoutError maps validation failures to 400 and everything else to 500.
// Provider and order messages are shown as is; anything else gets fallback.
func (h *Handler) writeCheckoutError(c *gin.Context, err error, fallback string) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
		return
	}

	h.logger.Error(fallback, zap.Error(err))

	var oErr *service.OrderError
	if errors.As(err, &oErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": oErr.Message})
		return
	}
	if apiErr, ok := printful.IsAPIError(err); ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
