package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the write side of the event stream
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, event interface{}) error
}

// EventPublisher publishes storefront domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.Publish(ctx, orderKey(event.OrderID), event.EventType, event)
}

func (ep *EventPublisher) PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	return ep.producer.Publish(ctx, orderKey(event.OrderID), event.EventType, event)
}

func (ep *EventPublisher) PublishOrderConfirmationFailed(ctx context.Context, event *models.OrderConfirmationFailedEvent) error {
	return ep.producer.Publish(ctx, orderKey(event.OrderID), event.EventType, event)
}

func (ep *EventPublisher) PublishPaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return ep.producer.Publish(ctx, "payment-"+event.PaymentIntentID, event.EventType, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onOrderPlaced             func(context.Context, *models.OrderPlacedEvent) error
	onOrderConfirmed          func(context.Context, *models.OrderConfirmedEvent) error
	onOrderConfirmationFailed func(context.Context, *models.OrderConfirmationFailedEvent) error
	onPayment                 func(context.Context, *models.PaymentEvent) error
	logger                    *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

func (eh *EventHandler) OnOrderPlaced(h func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = h
}

func (eh *EventHandler) OnOrderConfirmed(h func(context.Context, *models.OrderConfirmedEvent) error) {
	eh.onOrderConfirmed = h
}

func (eh *EventHandler) OnOrderConfirmationFailed(h func(context.Context, *models.OrderConfirmationFailedEvent) error) {
	eh.onOrderConfirmationFailed = h
}

// OnPayment registers one callback for both payment outcomes
func (eh *EventHandler) OnPayment(h func(context.Context, *models.PaymentEvent) error) {
	eh.onPayment = h
}

// HandleMessage decodes a message and dispatches it by event type
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	eventType := EventType(msg)
	if eventType == "" {
		var base models.BaseEvent
		if err := json.Unmarshal(msg.Value, &base); err != nil {
			return Permanent(fmt.Errorf("failed to unmarshal base event: %w", err))
		}
		eventType = base.EventType
	}

	switch eventType {
	case models.EventTypeOrderPlaced:
		return dispatch(ctx, msg, eh.onOrderPlaced)
	case models.EventTypeOrderConfirmed:
		return dispatch(ctx, msg, eh.onOrderConfirmed)
	case models.EventTypeOrderConfirmationFailed:
		return dispatch(ctx, msg, eh.onOrderConfirmationFailed)
	case models.EventTypePaymentSucceeded, models.EventTypePaymentFailed:
		return dispatch(ctx, msg, eh.onPayment)
	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", eventType))
		return nil
	}
}

func dispatch[E any](ctx context.Context, msg kafka.Message, handler func(context.Context, *E) error) error {
	if handler == nil {
		return nil
	}
	var event E
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Permanent(fmt.Errorf("failed to unmarshal %T: %w", event, err))
	}
	return handler(ctx, &event)
}
