package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type paymentFixture struct {
	svc     *PaymentService
	intents *fakeIntents
	orders  *fakeOrders
	pub     *fakePublisher
	events  *fakeEventStore
	locker  *fakeLocker
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		intents: &fakeIntents{},
		orders:  &fakeOrders{},
		pub:     &fakePublisher{},
		events:  newFakeEventStore(),
		locker:  newFakeLocker(),
	}
	f.svc = NewPaymentService(f.intents, f.orders, f.pub, f.events, f.locker, PaymentConfig{
		WebhookSecret:  testWebhookSecret,
		PublishableKey: "pk_test_123",
	})
	return f
}

func signedEvent(t *testing.T, secret string, event map[string]interface{}) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func intentEvent(eventID, eventType string, intent map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"data":        map[string]interface{}{"object": intent},
	}
}

func paidIntent(metadata map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":       "pi_123",
		"object":   "payment_intent",
		"amount":   4000,
		"currency": "gbp",
		"status":   "succeeded",
		"metadata": metadata,
	}
}

func checkoutMetadata(t *testing.T, discount string) map[string]string {
	t.Helper()
	items, err := json.Marshal([]models.CartItem{
		{ProductID: 1, VariantID: 101, Name: "Sunflower Tee", Price: "£20.00", Size: "S"},
		{ProductID: 2, VariantID: 201, Name: "Kyiv Hoodie", Price: "£20.00", Size: "L"},
	})
	require.NoError(t, err)
	address, err := json.Marshal(validAddress())
	require.NoError(t, err)

	md := map[string]string{
		models.MetadataItems:           string(items),
		models.MetadataShippingAddress: string(address),
	}
	if discount != "" {
		md[models.MetadataDiscountApplied] = discount
	}
	return md
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newPaymentFixture()

	intent, err := f.svc.CreatePaymentIntent(context.Background(), &CreatePaymentIntentRequest{
		Amount:   4000,
		Metadata: map[string]string{"discount_applied": "0"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_test_secret_abc", intent.ClientSecret)
	assert.Equal(t, int64(4000), f.intents.amount)
	assert.Equal(t, "usd", f.intents.currency)
	assert.Equal(t, "0", f.intents.metadata["discount_applied"])
}

func TestCreatePaymentIntentRejectsSmallAmounts(t *testing.T) {
	for _, amount := range []int64{0, -5} {
		f := newPaymentFixture()
		_, err := f.svc.CreatePaymentIntent(context.Background(), &CreatePaymentIntentRequest{Amount: amount, Currency: "gbp"})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "Invalid amount. Amount must be at least 1", vErr.Message)
		assert.Zero(t, f.intents.amount)
	}
}

func TestCreatePaymentIntentProcessorError(t *testing.T) {
	f := newPaymentFixture()
	f.intents.err = errors.New("card_declined")

	_, err := f.svc.CreatePaymentIntent(context.Background(), &CreatePaymentIntentRequest{Amount: 100})
	assert.ErrorContains(t, err, "card_declined")
}

func TestHandleWebhookMissingSignature(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "")
	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Empty(t, f.orders.requests)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, "whsec_someone_else",
		intentEvent("evt_bad", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "0"))))

	err := f.svc.HandleWebhook(context.Background(), payload, header)
	require.ErrorIs(t, err, ErrInvalidSignature)

	var sigErr *SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.NotEmpty(t, sigErr.Reason)
	assert.Empty(t, f.orders.requests)
	assert.Empty(t, f.pub.events)
	assert.Empty(t, f.events.processed)
}

func TestHandleWebhookPaymentSucceededCreatesOrder(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_1", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "20"))))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))

	require.Len(t, f.orders.requests, 1)
	req := f.orders.requests[0]
	require.Len(t, req.Items, 2)
	assert.Equal(t, "L", req.Items[1].Size)
	assert.Equal(t, "olena@example.org", req.Address.Email)
	assert.Equal(t, 20, req.DiscountPercentage.Int())
	assert.Equal(t, &models.PaymentDetails{Gateway: "stripe", TransactionID: "pi_123"}, req.PaymentDetails)
	assert.Equal(t, "pi_123", req.PaymentIntentID)

	require.Len(t, f.pub.events, 1)
	paid := f.pub.events[0].(*models.PaymentEvent)
	assert.Equal(t, models.EventTypePaymentSucceeded, paid.EventType)
	assert.Equal(t, int64(4000), paid.Amount)
	assert.Equal(t, "gbp", paid.Currency)

	assert.Equal(t, "payment_intent.succeeded", f.events.processed["evt_1"])
	assert.Equal(t, []string{"stripe-event:evt_1"}, f.locker.released)
}

func TestHandleWebhookMalformedDiscountDefaultsToZero(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_2", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "abc"))))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	require.Len(t, f.orders.requests, 1)
	assert.Equal(t, 0, f.orders.requests[0].DiscountPercentage.Int())
}

func TestHandleWebhookDuplicateEventIsSkipped(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_dup", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "0"))))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))

	assert.Len(t, f.orders.requests, 1)
}

func TestHandleWebhookInFlightEventIsSkipped(t *testing.T) {
	f := newPaymentFixture()
	f.locker.held["stripe-event:evt_busy"] = true
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_busy", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "0"))))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Empty(t, f.orders.requests)
}

func TestHandleWebhookDedupeStoreErrorStillProcesses(t *testing.T) {
	f := newPaymentFixture()
	f.events.checkErr = errors.New("db unavailable")
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_3", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "0"))))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Len(t, f.orders.requests, 1)
}

func TestHandleWebhookOrderFailureIsAcknowledged(t *testing.T) {
	f := newPaymentFixture()
	f.orders.err = &OrderError{Message: "No sync variant found for size XL"}
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_4", "payment_intent.succeeded", paidIntent(checkoutMetadata(t, "0"))))

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Len(t, f.orders.requests, 1)
}

func TestHandleWebhookMissingMetadata(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_5", "payment_intent.succeeded", paidIntent(map[string]string{})))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Empty(t, f.orders.requests)
	assert.Len(t, f.pub.events, 1)
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	f := newPaymentFixture()
	intent := paidIntent(checkoutMetadata(t, "0"))
	intent["status"] = "requires_payment_method"
	intent["last_payment_error"] = map[string]interface{}{"type": "card_error", "message": "Your card was declined."}
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_6", "payment_intent.payment_failed", intent))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Empty(t, f.orders.requests)

	require.Len(t, f.pub.events, 1)
	failed := f.pub.events[0].(*models.PaymentEvent)
	assert.Equal(t, models.EventTypePaymentFailed, failed.EventType)
	assert.Equal(t, "Your card was declined.", failed.Reason)
}

func TestHandleWebhookUnhandledType(t *testing.T) {
	f := newPaymentFixture()
	payload, header := signedEvent(t, testWebhookSecret,
		intentEvent("evt_7", "charge.refunded", map[string]interface{}{"id": "ch_1", "object": "charge"}))

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, header))
	assert.Empty(t, f.orders.requests)
	assert.Empty(t, f.pub.events)
	assert.Equal(t, "charge.refunded", f.events.processed["evt_7"])
}

func TestPublishableKey(t *testing.T) {
	assert.Equal(t, "pk_test_123", newPaymentFixture().svc.PublishableKey())
}
