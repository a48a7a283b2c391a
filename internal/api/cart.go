package api

import (
	"net/http"
	"strconv"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const cartSessionHeader = "X-Cart-Session"

// loadCart hydrates the caller's cart. A new session id is issued when none was sent.
func (h *Handler) loadCart(c *gin.Context) (*cart.Store, bool) {
	sessionID := c.GetHeader(cartSessionHeader)
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.New().String()
	}
	c.Header(cartSessionHeader, sessionID)

	store := cart.NewStore(h.deps.Carts(sessionID))
	if err := store.Hydrate(c.Request.Context()); err != nil {
		h.logger.Error("Failed to load cart", zap.String("session", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return nil, false
	}
	return store, true
}

func (h *Handler) getCart(c *gin.Context) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	h.writeCart(c, store)
}

// addCartItemRequest is a product line as the storefront sends it
type addCartItemRequest struct {
	ProductID int64  `json:"productId" binding:"required"`
	VariantID int64  `json:"variantId"`
	Name      string `json:"name"`
	Price     string `json:"price" binding:"required"`
	Image     string `json:"image"`
	Size      string `json:"size" binding:"required"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item := models.CartItem{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Name:      req.Name,
		Price:     req.Price,
		Image:     req.Image,
		Size:      req.Size,
	}
	if _, err := cart.ParsePrice(item.Price); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item price", "details": err.Error()})
		return
	}

	h.dispatch(c, cart.AddItem(item))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item index"})
		return
	}

	h.dispatch(c, cart.RemoveItem(index))
}

func (h *Handler) clearCart(c *gin.Context) {
	h.dispatch(c, cart.ClearCart())
}

func (h *Handler) dispatch(c *gin.Context, action cart.Action) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}

	if err := store.Dispatch(c.Request.Context(), action); err != nil {
		h.logger.Error("Failed to save cart", zap.String("action", string(action.Type)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cart"})
		return
	}
	util.CartMutationsTotal.WithLabelValues(string(action.Type)).Inc()

	h.writeCart(c, store)
}

func (h *Handler) writeCart(c *gin.Context, store *cart.Store) {
	total, err := store.Total()
	if err != nil {
		h.logger.Warn("Cart holds an unparseable price", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to total cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       store.Items(),
		"total":       h.deps.CurrencySymbol + total.StringFixed(2),
		"total_minor": cart.MinorUnits(total),
	})
}
