package api

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getOrder returns the ledger row of a provider order
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	order, err := h.deps.Orders.GetOrder(c.Request.Context(), orderID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to read order ledger", zap.Int64("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read order",
		})
		return
	}

	c.JSON(http.StatusOK, order)
}
