package models

import "time"

// Event types
const (
	EventTypeOrderPlaced             = "ORDER_PLACED"
	EventTypeOrderConfirmed          = "ORDER_CONFIRMED"
	EventTypeOrderConfirmationFailed = "ORDER_CONFIRMATION_FAILED"
	EventTypePaymentSucceeded        = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed           = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when the provider accepted a draft order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID            int64  `json:"order_id"`
	IsFreeOrder        bool   `json:"is_free_order"`
	DiscountPercentage int    `json:"discount_percentage"`
	RecipientEmail     string `json:"recipient_email"`
	ItemCount          int    `json:"item_count"`
	PaymentIntentID    string `json:"payment_intent_id,omitempty"`
}

// OrderConfirmedEvent published when the provider confirmed an order for fulfillment
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	Gateway       string `json:"gateway"`
	TransactionID string `json:"transaction_id"`
}

// OrderConfirmationFailedEvent published when a draft order could not be confirmed
type OrderConfirmationFailedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// PaymentEvent published for payment processor outcomes
type PaymentEvent struct {
	BaseEvent
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Reason          string `json:"reason,omitempty"`
}
