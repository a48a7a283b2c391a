package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// LedgerWorker consumes order events and applies them to the ledger
type LedgerWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewLedgerWorker creates a new ledger worker
func NewLedgerWorker(consumer *broker.Consumer, ledger *service.LedgerService) *LedgerWorker {
	return &LedgerWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(ledger),
		logger:       util.GetLogger(),
	}
}

// NewEventHandler routes every order event to the ledger
func NewEventHandler(ledger *service.LedgerService) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(ledger.HandleOrderPlaced)
	eventHandler.OnOrderConfirmed(ledger.HandleOrderConfirmed)
	eventHandler.OnOrderConfirmationFailed(ledger.HandleOrderConfirmationFailed)
	eventHandler.OnPayment(ledger.HandlePayment)
	return eventHandler
}

// Start blocks until ctx is cancelled or the consumer is closed
func (w *LedgerWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting ledger worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LedgerWorker) Stop() error {
	w.logger.Info("Stopping ledger worker")
	return w.consumer.Close()
}
