package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 1 << 20
)

// createPaymentIntent creates a payment intent and returns its client secret
func (h *Handler) createPaymentIntent(c *gin.Context) {
	var req service.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	intent, err := h.deps.Payments.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		h.logger.Error("Error creating payment intent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment intent"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
}

// stripeWebhook verifies and processes a payment processor event. The raw body
// is read untouched since the signature covers its exact bytes.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	err = h.deps.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		var sigErr *service.SignatureError
		switch {
		case errors.Is(err, service.ErrMissingSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing stripe-signature header"})
		case errors.As(err, &sigErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook Error: " + sigErr.Reason})
		default:
			h.logger.Error("Error processing webhook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// stripeConfig exposes the publishable key to the browser
func (h *Handler) stripeConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publishableKey": h.deps.Payments.PublishableKey()})
}

// lookupDiscount resolves a discount code to its percentage
func (h *Handler) lookupDiscount(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	pct, ok := h.deps.Codes.Resolve(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown discount code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code, "percentage": pct})
}
