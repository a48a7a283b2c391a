package service

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/models"
	"storefront/internal/printful"
)

// FulfillmentClient is the print-on-demand provider
type FulfillmentClient interface {
	ListStoreProducts(ctx context.Context) ([]printful.StoreProduct, error)
	GetStoreProduct(ctx context.Context, productID int64) (*printful.ProductDetail, error)
	CreateOrder(ctx context.Context, order *models.DraftOrder) (*printful.Order, error)
	ConfirmOrder(ctx context.Context, orderID int64, payment *models.PaymentDetails) (json.RawMessage, error)
}

// EventPublisher emits storefront domain events
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
	PublishOrderConfirmationFailed(ctx context.Context, event *models.OrderConfirmationFailedEvent) error
	PublishPaymentEvent(ctx context.Context, event *models.PaymentEvent) error
}

// WebhookEventStore remembers processor events that were already handled
type WebhookEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Locker takes short-lived distributed locks
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error { return nil }
func (noopPublisher) PublishOrderConfirmed(context.Context, *models.OrderConfirmedEvent) error {
	return nil
}
func (noopPublisher) PublishOrderConfirmationFailed(context.Context, *models.OrderConfirmationFailedEvent) error {
	return nil
}
func (noopPublisher) PublishPaymentEvent(context.Context, *models.PaymentEvent) error { return nil }
