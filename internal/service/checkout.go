package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/broker"
	"storefront/internal/discount"
	"storefront/internal/fanout"
	"storefront/internal/models"
	"storefront/internal/printful"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	gatewayManual   = "manual"
	freeOrderNote   = "Free Order - 100% Discount Applied"
	legacyPayMethod = "paypal"
)

// ValidationError is a request the buyer has to fix
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// OrderError is a checkout failure whose message is shown to the buyer as is
type OrderError struct {
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// CheckoutService builds provider orders from carts
type CheckoutService struct {
	client          FulfillmentClient
	publisher       EventPublisher
	codes           *discount.Codes
	baseURL         string
	legacyRecipient models.Address
	now             func() time.Time
	logger          *zap.Logger
}

// NewCheckoutService creates a new checkout service. publisher may be nil.
func NewCheckoutService(
	client FulfillmentClient,
	publisher EventPublisher,
	codes *discount.Codes,
	baseURL string,
	legacyRecipient models.Address,
) *CheckoutService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &CheckoutService{
		client:          client,
		publisher:       publisher,
		codes:           codes,
		baseURL:         baseURL,
		legacyRecipient: legacyRecipient,
		now:             time.Now,
		logger:          util.GetLogger(),
	}
}

// CreateOrderRequest is the body of a create-order call
type CreateOrderRequest struct {
	Items              []models.CartItem      `json:"items"`
	Address            *models.Address        `json:"address"`
	IsFreeOrder        bool                   `json:"is_free_order"`
	DiscountPercentage discount.Percentage    `json:"discount_percentage"`
	DiscountCode       string                 `json:"discount_code,omitempty"`
	PaymentDetails     *models.PaymentDetails `json:"payment_details,omitempty"`

	// PaymentIntentID links the order to the intent that paid for it
	PaymentIntentID string `json:"-"`
}

// CreateOrderResponse is returned after the provider accepted the order
type CreateOrderResponse struct {
	Success         bool            `json:"success"`
	OrderID         int64           `json:"order_id"`
	IsFreeOrder     bool            `json:"is_free_order"`
	DiscountApplied int             `json:"discount_applied"`
	Costs           *printful.Costs `json:"costs,omitempty"`
}

// CreateOrder validates the request, resolves every item's sync variant, submits a
// draft order and confirms it when it is free or already paid. Confirmation
// failures are logged and never fail the call.
func (s *CheckoutService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateOrder")
	defer span.End()

	if err := validateCreateOrder(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	pct := req.DiscountPercentage.Int()
	if req.DiscountCode != "" {
		resolved, ok := s.codes.Resolve(req.DiscountCode)
		if !ok {
			util.OrdersFailedTotal.WithLabelValues("validation").Inc()
			return nil, &ValidationError{Message: "Invalid discount code"}
		}
		pct = resolved
	}
	isFree := discount.IsFree(pct, req.IsFreeOrder)
	span.SetAttributes(attribute.Int("order.discount", pct), attribute.Bool("order.free", isFree))

	lines, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("variant").Inc()
		util.RecordError(span, err)
		return nil, err
	}

	draft := buildDraftOrder(*req.Address, lines, pct, isFree)

	order, err := s.client.CreateOrder(ctx, draft)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("provider").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create draft order: %w", err)
	}

	kind := "paid"
	if isFree {
		kind = "free"
	}
	util.OrdersCreatedTotal.WithLabelValues(kind).Inc()
	s.logger.Info("Draft order created",
		zap.Int64("order_id", order.ID),
		zap.Bool("is_free_order", isFree),
		zap.Int("discount", pct))

	s.publishPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent:          broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:            order.ID,
		IsFreeOrder:        isFree,
		DiscountPercentage: pct,
		RecipientEmail:     req.Address.Email,
		ItemCount:          len(lines),
		PaymentIntentID:    req.PaymentIntentID,
	})

	if isFree || req.PaymentDetails != nil {
		details := req.PaymentDetails
		if isFree {
			details = &models.PaymentDetails{Gateway: gatewayManual}
		}
		if _, err := s.confirm(ctx, order.ID, s.paymentBlock(details)); err != nil {
			s.logger.Error("Order created but confirmation failed",
				zap.Int64("order_id", order.ID),
				zap.Error(err))
		}
	}

	return &CreateOrderResponse{
		Success:         true,
		OrderID:         order.ID,
		IsFreeOrder:     isFree,
		DiscountApplied: pct,
		Costs:           order.Costs,
	}, nil
}

// OrderRef is an order id sent as a JSON number or string. A numeric zero or an
// empty string decodes to "", which means no id was sent.
type OrderRef string

func (r *OrderRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, string(data) == "null", string(data) == "false":
		*r = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = OrderRef(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*r = ""
		return nil
	}
	*r = OrderRef(n)
	return nil
}

// Int64 parses the id as a base-10 integer
func (r OrderRef) Int64() (int64, error) {
	return strconv.ParseInt(string(r), 10, 64)
}

// ConfirmOrderRequest is the body of a confirm-order call
type ConfirmOrderRequest struct {
	OrderID OrderRef               `json:"order_id"`
	Payment *models.PaymentDetails `json:"payment,omitempty"`
}

// ConfirmOrderResponse carries the provider's confirmation result
type ConfirmOrderResponse struct {
	Success      bool            `json:"success"`
	OrderID      int64           `json:"order_id"`
	Confirmation json.RawMessage `json:"confirmation"`
}

// ConfirmOrder approves an existing draft order. Provider errors are returned unchanged
// so callers can pass the provider's status through.
func (s *CheckoutService) ConfirmOrder(ctx context.Context, req *ConfirmOrderRequest) (*ConfirmOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ConfirmOrder")
	defer span.End()

	if req.OrderID == "" {
		return nil, &ValidationError{Message: "Missing order ID"}
	}
	orderID, err := req.OrderID.Int64()
	if err != nil {
		return nil, &ValidationError{Message: "Invalid order ID"}
	}

	var payment *models.PaymentDetails
	if req.Payment != nil {
		payment = s.paymentBlock(req.Payment)
	}

	result, err := s.confirm(ctx, orderID, payment)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	return &ConfirmOrderResponse{Success: true, OrderID: orderID, Confirmation: result}, nil
}

// LegacyCheckout submits a draft order for the configured recipient and hands payment
// to the provider's dashboard. The dashboard URL is returned for redirecting the buyer.
func (s *CheckoutService) LegacyCheckout(ctx context.Context, items []models.CartItem) (string, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.LegacyCheckout")
	defer span.End()

	if len(items) == 0 {
		return "", &ValidationError{Message: "Missing or invalid items data"}
	}
	s.logger.Info("Processing checkout items", zap.Int("count", len(items)))

	lines, err := s.resolveItems(ctx, items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("variant").Inc()
		util.RecordError(span, err)
		return "", err
	}

	draft := &models.DraftOrder{
		Recipient: s.legacyRecipient,
		Items:     lines,
		Payment: &models.LegacyPayment{
			Method:    legacyPayMethod,
			ReturnURL: s.baseURL + "/shop?success=true",
			CancelURL: s.baseURL + "/shop?canceled=true",
		},
	}

	order, err := s.client.CreateOrder(ctx, draft)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("provider").Inc()
		util.RecordError(span, err)
		return "", fmt.Errorf("failed to create draft order: %w", err)
	}

	if order.DashboardURL == "" {
		s.logger.Error("No dashboard URL found in response", zap.Int64("order_id", order.ID))
		return "", &OrderError{Message: "No dashboard URL found in response"}
	}

	util.OrdersCreatedTotal.WithLabelValues("legacy").Inc()
	s.publishPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent:      broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:        order.ID,
		RecipientEmail: s.legacyRecipient.Email,
		ItemCount:      len(lines),
	})

	return order.DashboardURL, nil
}

// resolveItems maps every cart item to its provider sync variant. The first failure
// cancels the remaining lookups and nothing is returned.
func (s *CheckoutService) resolveItems(ctx context.Context, items []models.CartItem) ([]models.DraftOrderItem, error) {
	results, err := fanout.Gather(ctx, items, func(ctx context.Context, item models.CartItem) (models.DraftOrderItem, error) {
		detail, err := s.client.GetStoreProduct(ctx, item.ProductID)
		if err != nil {
			return models.DraftOrderItem{}, &OrderError{Message: "Failed to fetch product details", Err: err}
		}
		variant, ok := detail.VariantForSize(item.Size)
		if !ok {
			return models.DraftOrderItem{}, &OrderError{Message: fmt.Sprintf("No sync variant found for size %s", item.Size)}
		}
		return models.DraftOrderItem{SyncVariantID: variant.ID, Quantity: 1}, nil
	}, fanout.FailFast)
	if err != nil {
		s.logger.Warn("Failed to resolve order items", zap.Error(err))
		return nil, err
	}
	return fanout.Values(results), nil
}

// confirm calls the provider and records the outcome
func (s *CheckoutService) confirm(ctx context.Context, orderID int64, payment *models.PaymentDetails) (json.RawMessage, error) {
	result, err := s.client.ConfirmOrder(ctx, orderID, payment)
	if err != nil {
		util.OrderConfirmationFailuresTotal.Inc()
		event := &models.OrderConfirmationFailedEvent{
			BaseEvent: broker.NewBaseEvent(models.EventTypeOrderConfirmationFailed),
			OrderID:   orderID,
			Reason:    err.Error(),
		}
		if pubErr := s.publisher.PublishOrderConfirmationFailed(ctx, event); pubErr != nil {
			s.logger.Error("Failed to publish OrderConfirmationFailed event", zap.Error(pubErr))
		}
		return nil, err
	}

	util.OrdersConfirmedTotal.Inc()
	event := &models.OrderConfirmedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:   orderID,
	}
	if payment != nil {
		event.Gateway = payment.Gateway
		event.TransactionID = payment.TransactionID
	}
	if err := s.publisher.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}
	s.logger.Info("Order confirmed", zap.Int64("order_id", orderID))
	return result, nil
}

// paymentBlock fills the gateway and transaction id defaults
func (s *CheckoutService) paymentBlock(in *models.PaymentDetails) *models.PaymentDetails {
	out := &models.PaymentDetails{Gateway: gatewayManual}
	if in != nil && in.Gateway != "" {
		out.Gateway = in.Gateway
	}
	if in != nil && in.TransactionID != "" {
		out.TransactionID = in.TransactionID
	} else {
		out.TransactionID = fmt.Sprintf("MANUAL-%d", s.now().UnixMilli())
	}
	return out
}

func (s *CheckoutService) publishPlaced(ctx context.Context, event *models.OrderPlacedEvent) {
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func validateCreateOrder(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Message: "Missing or invalid items data"}
	}
	if req.Address == nil {
		return &ValidationError{Message: "Missing address data"}
	}
	for _, field := range models.RequiredAddressFields {
		if req.Address.Field(field) == "" {
			return &ValidationError{Message: "Missing required address field: " + field}
		}
	}
	return nil
}

func buildDraftOrder(addr models.Address, lines []models.DraftOrderItem, pct int, isFree bool) *models.DraftOrder {
	draft := &models.DraftOrder{
		Recipient: addr,
		Items:     lines,
	}
	if pct <= 0 {
		return draft
	}

	note := fmt.Sprintf("Order with %d%% discount applied", pct)
	costs := &models.RetailCosts{Discount: fmt.Sprintf("%d%%", pct)}
	if isFree {
		note = freeOrderNote
		costs.Total = "0.00"
	}
	draft.RetailCosts = costs
	draft.Gift = &models.Gift{Subject: note}
	draft.PackingSlip = &models.PackingSlip{Message: note}
	return draft
}
