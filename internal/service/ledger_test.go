package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLedger struct {
	mu        sync.Mutex
	orders    map[int64]*models.OrderRecord
	processed map[string]bool
	upserts   int
	updateErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{orders: map[int64]*models.OrderRecord{}, processed: map[string]bool{}}
}

func (m *memoryLedger) UpsertOrder(_ context.Context, order *models.OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if existing, ok := m.orders[order.ProviderOrderID]; ok {
		order.Status = existing.Status
	}
	cp := *order
	m.orders[order.ProviderOrderID] = &cp
	return nil
}

func (m *memoryLedger) UpdateOrderStatus(_ context.Context, orderID int64, status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	row, ok := m.orders[orderID]
	if !ok {
		row = &models.OrderRecord{ProviderOrderID: orderID}
		m.orders[orderID] = row
	}
	row.Status, row.FailureReason = status, reason
	return nil
}

func (m *memoryLedger) GetOrder(_ context.Context, orderID int64) (*models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memoryLedger) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *memoryLedger) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = true
	return nil
}

func TestLedgerOrderLifecycle(t *testing.T) {
	db := newMemoryLedger()
	ledger := NewLedgerService(db)
	ctx := context.Background()

	require.NoError(t, ledger.HandleOrderPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent:          broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:            9001,
		IsFreeOrder:        true,
		DiscountPercentage: 100,
		RecipientEmail:     "olena@example.org",
		ItemCount:          2,
	}))

	order, err := ledger.GetOrder(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDraft, order.Status)
	assert.Equal(t, 2, order.ItemCount)

	require.NoError(t, ledger.HandleOrderConfirmed(ctx, &models.OrderConfirmedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:   9001,
		Gateway:   "manual",
	}))

	order, err = ledger.GetOrder(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestLedgerConfirmationFailureKeepsReason(t *testing.T) {
	db := newMemoryLedger()
	ledger := NewLedgerService(db)

	require.NoError(t, ledger.HandleOrderConfirmationFailed(context.Background(), &models.OrderConfirmationFailedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderConfirmationFailed),
		OrderID:   77,
		Reason:    "Order is not a draft",
	}))

	order, err := ledger.GetOrder(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmationFailed, order.Status)
	assert.Equal(t, "Order is not a draft", order.FailureReason)
}

func TestLedgerReplayedEventIsAppliedOnce(t *testing.T) {
	db := newMemoryLedger()
	ledger := NewLedgerService(db)
	event := &models.OrderPlacedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   5,
		ItemCount: 1,
	}

	require.NoError(t, ledger.HandleOrderPlaced(context.Background(), event))
	require.NoError(t, ledger.HandleOrderPlaced(context.Background(), event))

	assert.Equal(t, 1, db.upserts)
}

func TestLedgerFailedApplyIsNotMarked(t *testing.T) {
	db := newMemoryLedger()
	db.updateErr = errors.New("db unavailable")
	ledger := NewLedgerService(db)
	event := &models.OrderConfirmedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeOrderConfirmed), OrderID: 5}

	err := ledger.HandleOrderConfirmed(context.Background(), event)
	require.Error(t, err)
	assert.False(t, db.processed[event.EventID])
}

func TestLedgerPaymentEventsAreRecorded(t *testing.T) {
	db := newMemoryLedger()
	event := &models.PaymentEvent{
		BaseEvent:       broker.NewBaseEvent(models.EventTypePaymentSucceeded),
		PaymentIntentID: "pi_123",
		Amount:          4000,
	}

	require.NoError(t, NewLedgerService(db).HandlePayment(context.Background(), event))
	assert.True(t, db.processed[event.EventID])
}

func TestLedgerUnknownOrder(t *testing.T) {
	_, err := NewLedgerService(newMemoryLedger()).GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
