package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// LedgerStore persists the order ledger
type LedgerStore interface {
	UpsertOrder(ctx context.Context, order *models.OrderRecord) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status, reason string) error
	GetOrder(ctx context.Context, orderID int64) (*models.OrderRecord, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// LedgerService applies order events to the ledger. Every event is applied at most once.
type LedgerService struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetOrder returns the ledger row of a provider order
func (s *LedgerService) GetOrder(ctx context.Context, orderID int64) (*models.OrderRecord, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.GetOrder")
	defer span.End()

	return s.store.GetOrder(ctx, orderID)
}

func (s *LedgerService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return s.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		return s.store.UpsertOrder(ctx, &models.OrderRecord{
			ProviderOrderID:    event.OrderID,
			Status:             models.OrderStatusDraft,
			IsFreeOrder:        event.IsFreeOrder,
			DiscountPercentage: event.DiscountPercentage,
			PaymentIntentID:    event.PaymentIntentID,
			RecipientEmail:     event.RecipientEmail,
			ItemCount:          event.ItemCount,
		})
	})
}

func (s *LedgerService) HandleOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	return s.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		return s.store.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusConfirmed, "")
	})
}

func (s *LedgerService) HandleOrderConfirmationFailed(ctx context.Context, event *models.OrderConfirmationFailedEvent) error {
	return s.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		return s.store.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusConfirmationFailed, event.Reason)
	})
}

// HandlePayment records payment outcomes. Orders are linked to intents through ORDER_PLACED.
func (s *LedgerService) HandlePayment(ctx context.Context, event *models.PaymentEvent) error {
	return s.apply(ctx, event.BaseEvent, func(ctx context.Context) error {
		s.logger.Info("Payment recorded",
			zap.String("type", event.EventType),
			zap.String("payment_intent_id", event.PaymentIntentID),
			zap.Int64("amount", event.Amount),
			zap.String("reason", event.Reason))
		return nil
	})
}

func (s *LedgerService) apply(ctx context.Context, base models.BaseEvent, fn func(context.Context) error) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.Apply")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		s.logger.Debug("Event already applied", zap.String("event_id", base.EventID))
		return nil
	}

	if err := fn(ctx); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to apply %s: %w", base.EventType, err)
	}

	if err := s.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	util.LedgerEventsTotal.WithLabelValues(base.EventType).Inc()
	return nil
}
