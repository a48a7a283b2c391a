package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/printful"
)

type confirmCall struct {
	orderID int64
	payment *models.PaymentDetails
}

type fakeFulfillment struct {
	mu sync.Mutex

	listing    []printful.StoreProduct
	listErr    error
	details    map[int64]*printful.ProductDetail
	detailErrs map[int64]error
	created    *printful.Order
	createErr  error
	confirmErr error

	productCalls int
	drafts       []*models.DraftOrder
	confirms     []confirmCall
}

func newFakeFulfillment() *fakeFulfillment {
	return &fakeFulfillment{
		details:    map[int64]*printful.ProductDetail{},
		detailErrs: map[int64]error{},
		created:    &printful.Order{ID: 9001, DashboardURL: "https://www.printful.com/dashboard/9001"},
	}
}

func (f *fakeFulfillment) withProduct(id int64, name string, variants ...printful.SyncVariant) *fakeFulfillment {
	f.listing = append(f.listing, printful.StoreProduct{ID: id, Name: name})
	f.details[id] = &printful.ProductDetail{
		SyncProduct:  printful.SyncProduct{ID: id, Name: name, ThumbnailURL: "https://files.example/" + name + ".png"},
		SyncVariants: variants,
	}
	return f
}

func (f *fakeFulfillment) ListStoreProducts(_ context.Context) ([]printful.StoreProduct, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func (f *fakeFulfillment) GetStoreProduct(_ context.Context, productID int64) (*printful.ProductDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if err := f.detailErrs[productID]; err != nil {
		return nil, err
	}
	detail, ok := f.details[productID]
	if !ok {
		return nil, &printful.APIError{StatusCode: 404, Message: "Not found"}
	}
	return detail, nil
}

func (f *fakeFulfillment) CreateOrder(_ context.Context, order *models.DraftOrder) (*printful.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, order)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeFulfillment) ConfirmOrder(_ context.Context, orderID int64, payment *models.PaymentDetails) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = append(f.confirms, confirmCall{orderID: orderID, payment: payment})
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return json.RawMessage(`{"id":9001,"status":"pending"}`), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	types  []string
	events []interface{}
	err    error
}

func (p *fakePublisher) record(eventType string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	return p.record(e.EventType, e)
}

func (p *fakePublisher) PublishOrderConfirmed(_ context.Context, e *models.OrderConfirmedEvent) error {
	return p.record(e.EventType, e)
}

func (p *fakePublisher) PublishOrderConfirmationFailed(_ context.Context, e *models.OrderConfirmationFailedEvent) error {
	return p.record(e.EventType, e)
}

func (p *fakePublisher) PublishPaymentEvent(_ context.Context, e *models.PaymentEvent) error {
	return p.record(e.EventType, e)
}

type fakeEventStore struct {
	mu        sync.Mutex
	processed map[string]string
	checkErr  error
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{processed: map[string]string{}}
}

func (s *fakeEventStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkErr != nil {
		return false, s.checkErr
	}
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *fakeEventStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = eventType
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, true, nil
}

type fakeIntents struct {
	amount   int64
	currency string
	metadata map[string]string
	err      error
}

func (f *fakeIntents) CreatePaymentIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.amount, f.currency, f.metadata = amount, currency, metadata
	return &models.PaymentIntent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret_abc",
		Amount:       amount,
		Currency:     currency,
		Metadata:     metadata,
		Status:       "requires_payment_method",
	}, nil
}

type fakeOrders struct {
	mu       sync.Mutex
	requests []*CreateOrderRequest
	err      error
}

func (f *fakeOrders) CreateOrder(_ context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CreateOrderResponse{Success: true, OrderID: 9001}, nil
}

var errUpstream = errors.New("connection reset by peer")

func validAddress() *models.Address {
	return &models.Address{
		Name:        "Olena Kovalenko",
		Address1:    "10 Downing St",
		City:        "London",
		StateCode:   "LND",
		CountryCode: "GB",
		Zip:         "SW1A 2AA",
		Email:       "olena@example.org",
	}
}
