package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/broker"
	"storefront/internal/discount"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"

	gatewayStripe  = "stripe"
	eventLockTTL   = 5 * time.Minute
	eventLockScope = "stripe-event:"
)

var (
	// ErrMissingSignature is returned when a webhook arrives unsigned
	ErrMissingSignature = errors.New("missing stripe-signature header")
	// ErrInvalidSignature matches every SignatureError
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// SignatureError is a webhook whose signature did not verify
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "invalid webhook signature: " + e.Reason
}

func (e *SignatureError) Is(target error) bool {
	return target == ErrInvalidSignature
}

// PaymentIntentCreator creates payment intents at the processor
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error)
}

// OrderCreator places provider orders
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
}

// PaymentConfig holds processor keys
type PaymentConfig struct {
	WebhookSecret   string
	PublishableKey  string
	DefaultCurrency string
}

// PaymentService bridges the payment processor and checkout
type PaymentService struct {
	intents   PaymentIntentCreator
	orders    OrderCreator
	publisher EventPublisher
	events    WebhookEventStore
	locker    Locker
	cfg       PaymentConfig
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service. publisher, events and locker may be nil;
// without events and locker webhook redeliveries are not deduplicated.
func NewPaymentService(
	intents PaymentIntentCreator,
	orders OrderCreator,
	publisher EventPublisher,
	events WebhookEventStore,
	locker Locker,
	cfg PaymentConfig,
) *PaymentService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	return &PaymentService{
		intents:   intents,
		orders:    orders,
		publisher: publisher,
		events:    events,
		locker:    locker,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// CreatePaymentIntentRequest is the body of a payment-intent call. Amount is in minor units.
type CreatePaymentIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreatePaymentIntent creates an intent with automatic payment methods
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *CreatePaymentIntentRequest) (*models.PaymentIntent, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePaymentIntent")
	defer span.End()

	if req.Amount < 1 {
		return nil, &ValidationError{Message: "Invalid amount. Amount must be at least 1"}
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	span.SetAttributes(attribute.Int64("payment.amount", req.Amount), attribute.String("payment.currency", currency))

	intent, err := s.intents.CreatePaymentIntent(ctx, req.Amount, currency, req.Metadata)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	util.PaymentIntentsCreatedTotal.Inc()
	s.logger.Info("Payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", currency))
	return intent, nil
}

// PublishableKey returns the client-side processor key
func (s *PaymentService) PublishableKey() string {
	return s.cfg.PublishableKey
}

// HandleWebhook verifies and processes one processor event. Once the signature
// verifies the event is acknowledged; failures past that point are only logged.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	if signature == "" {
		util.WebhookEventsTotal.WithLabelValues("unknown", "missing_signature").Inc()
		return ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		util.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		return &SignatureError{Reason: err.Error()}
	}

	eventType := string(event.Type)
	span.SetAttributes(attribute.String("webhook.event_id", event.ID), attribute.String("webhook.event_type", eventType))

	release, proceed := s.claimEvent(ctx, event.ID)
	if !proceed {
		s.logger.Info("Skipping duplicate webhook event", zap.String("event_id", event.ID))
		util.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return nil
	}
	defer release()

	outcome := "handled"
	switch eventType {
	case eventPaymentSucceeded, eventPaymentFailed:
		var intent stripe.PaymentIntent
		if event.Data == nil || json.Unmarshal(event.Data.Raw, &intent) != nil {
			s.logger.Error("Malformed payment intent in webhook event", zap.String("event_id", event.ID))
			outcome = "malformed"
			break
		}
		if eventType == eventPaymentSucceeded {
			s.handlePaymentSucceeded(ctx, &intent)
		} else {
			s.handlePaymentFailed(ctx, &intent)
		}
	default:
		s.logger.Info("Unhandled event type", zap.String("type", eventType))
		outcome = "ignored"
	}

	util.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
	s.markEvent(ctx, event.ID, eventType)
	return nil
}

func (s *PaymentService) handlePaymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) {
	s.logger.Info("PaymentIntent was successful", zap.String("payment_intent_id", intent.ID))

	s.publishPayment(ctx, &models.PaymentEvent{
		BaseEvent:       broker.NewBaseEvent(models.EventTypePaymentSucceeded),
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Currency:        string(intent.Currency),
	})

	rawItems := intent.Metadata[models.MetadataItems]
	rawAddress := intent.Metadata[models.MetadataShippingAddress]
	pct := discount.Parse(intent.Metadata[models.MetadataDiscountApplied])

	if rawItems == "" || rawAddress == "" {
		s.logger.Warn("Missing order items or shipping address in payment intent metadata",
			zap.String("payment_intent_id", intent.ID))
		return
	}

	var items []models.CartItem
	var address models.Address
	if err := json.Unmarshal([]byte(rawItems), &items); err != nil {
		s.logger.Error("Error processing order items", zap.String("payment_intent_id", intent.ID), zap.Error(err))
		return
	}
	if err := json.Unmarshal([]byte(rawAddress), &address); err != nil {
		s.logger.Error("Error processing shipping address", zap.String("payment_intent_id", intent.ID), zap.Error(err))
		return
	}

	resp, err := s.orders.CreateOrder(ctx, &CreateOrderRequest{
		Items:              items,
		Address:            &address,
		DiscountPercentage: discount.Percentage(pct),
		PaymentDetails:     &models.PaymentDetails{Gateway: gatewayStripe, TransactionID: intent.ID},
		PaymentIntentID:    intent.ID,
	})
	if err != nil {
		s.logger.Error("Failed to create Printful order",
			zap.String("payment_intent_id", intent.ID),
			zap.Error(err))
		return
	}

	s.logger.Info("Printful order created successfully",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("order_id", resp.OrderID))
}

func (s *PaymentService) handlePaymentFailed(ctx context.Context, intent *stripe.PaymentIntent) {
	reason := ""
	if intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}
	s.logger.Warn("Payment failed",
		zap.String("payment_intent_id", intent.ID),
		zap.String("reason", reason))

	s.publishPayment(ctx, &models.PaymentEvent{
		BaseEvent:       broker.NewBaseEvent(models.EventTypePaymentFailed),
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Currency:        string(intent.Currency),
		Reason:          reason,
	})
}

// claimEvent reports whether this delivery should be processed. Store and lock errors
// let the event through.
func (s *PaymentService) claimEvent(ctx context.Context, eventID string) (func(), bool) {
	noop := func() {}

	if s.events != nil {
		processed, err := s.events.IsEventProcessed(ctx, eventID)
		if err != nil {
			s.logger.Warn("Failed to check webhook event", zap.String("event_id", eventID), zap.Error(err))
		} else if processed {
			return noop, false
		}
	}

	if s.locker == nil {
		return noop, true
	}
	release, ok, err := s.locker.TryLock(ctx, eventLockScope+eventID, eventLockTTL)
	if err != nil {
		s.logger.Warn("Failed to lock webhook event", zap.String("event_id", eventID), zap.Error(err))
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("Failed to release webhook event lock", zap.String("event_id", eventID), zap.Error(err))
		}
	}, true
}

func (s *PaymentService) markEvent(ctx context.Context, eventID, eventType string) {
	if s.events == nil {
		return
	}
	if err := s.events.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		s.logger.Error("Failed to mark webhook event processed", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *PaymentService) publishPayment(ctx context.Context, event *models.PaymentEvent) {
	if err := s.publisher.PublishPaymentEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish payment event", zap.String("type", event.EventType), zap.Error(err))
	}
}
