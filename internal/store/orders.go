package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// UpsertOrder records a provider order, keeping the first known payment intent id
func (s *Store) UpsertOrder(ctx context.Context, order *models.OrderRecord) error {
	query := `
		INSERT INTO orders (provider_order_id, status, is_free_order, discount_percentage,
			payment_intent_id, recipient_email, item_count, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_order_id) DO UPDATE SET
			is_free_order = EXCLUDED.is_free_order,
			discount_percentage = EXCLUDED.discount_percentage,
			payment_intent_id = COALESCE(NULLIF(orders.payment_intent_id, ''), EXCLUDED.payment_intent_id),
			recipient_email = EXCLUDED.recipient_email,
			item_count = EXCLUDED.item_count,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.ProviderOrderID, order.Status, order.IsFreeOrder, order.DiscountPercentage,
		order.PaymentIntentID, order.RecipientEmail, order.ItemCount, order.FailureReason)
}

// UpdateOrderStatus sets the status of a known order, inserting a bare row when the
// status event arrived before the placement event
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (provider_order_id, status, failure_reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_order_id) DO UPDATE SET
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = NOW()`,
		orderID, status, reason)
	return err
}

// GetOrder retrieves a ledger row by provider order id
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.OrderRecord, error) {
	var order models.OrderRecord
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE provider_order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
