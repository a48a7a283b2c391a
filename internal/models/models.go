package models

import "time"

// Product is a catalog entry shaped for display
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	StoreURL    string    `json:"store_url"`
	Variants    []Variant `json:"variants"`
}

// Variant is a purchasable size of a product
type Variant struct {
	ID        int64  `json:"id"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// CartItem is one selected product/size. JSON keys match the browser cart.
type CartItem struct {
	ProductID int64  `json:"productId"`
	VariantID int64  `json:"variantId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Image     string `json:"image"`
	Size      string `json:"size"`
}

// Address is a shipping recipient
type Address struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// RequiredAddressFields lists the mandatory address keys in validation order.
var RequiredAddressFields = []string{"name", "address1", "city", "state_code", "country_code", "zip", "email"}

// Field returns the value of an address field by its JSON key
func (a *Address) Field(key string) string {
	switch key {
	case "name":
		return a.Name
	case "address1":
		return a.Address1
	case "address2":
		return a.Address2
	case "city":
		return a.City
	case "state_code":
		return a.StateCode
	case "country_code":
		return a.CountryCode
	case "zip":
		return a.Zip
	case "email":
		return a.Email
	case "phone":
		return a.Phone
	}
	return ""
}

// PaymentDetails is the payment block attached when confirming an order
type PaymentDetails struct {
	Gateway       string `json:"gateway,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PaymentIntent mirrors the processor's intent object
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Status       string            `json:"status"`
}

// Payment intent metadata keys
const (
	MetadataItems           = "items"
	MetadataShippingAddress = "shipping_address"
	MetadataDiscountApplied = "discount_applied"
)

// OrderRecord is a ledger row describing one provider order
type OrderRecord struct {
	ProviderOrderID    int64     `db:"provider_order_id" json:"order_id"`
	Status             string    `db:"status" json:"status"`
	IsFreeOrder        bool      `db:"is_free_order" json:"is_free_order"`
	DiscountPercentage int       `db:"discount_percentage" json:"discount_percentage"`
	PaymentIntentID    string    `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	RecipientEmail     string    `db:"recipient_email" json:"recipient_email"`
	ItemCount          int       `db:"item_count" json:"item_count"`
	FailureReason      string    `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Order ledger statuses
const (
	OrderStatusDraft              = "DRAFT"
	OrderStatusConfirmed          = "CONFIRMED"
	OrderStatusConfirmationFailed = "CONFIRMATION_FAILED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// DraftOrder is the order body submitted to the fulfillment provider
type DraftOrder struct {
	Recipient   Address          `json:"recipient"`
	Items       []DraftOrderItem `json:"items"`
	RetailCosts *RetailCosts     `json:"retail_costs,omitempty"`
	Gift        *Gift            `json:"gift,omitempty"`
	PackingSlip *PackingSlip     `json:"packing_slip,omitempty"`
	Payment     *LegacyPayment   `json:"payment,omitempty"`
}

type DraftOrderItem struct {
	SyncVariantID int64 `json:"sync_variant_id"`
	Quantity      int   `json:"quantity"`
}

// RetailCosts carries the discount annotation. Total is only set for free orders.
type RetailCosts struct {
	Discount string `json:"discount,omitempty"`
	Total    string `json:"total,omitempty"`
}

type Gift struct {
	Subject string `json:"subject"`
}

type PackingSlip struct {
	Message string `json:"message"`
}

// LegacyPayment asks the provider to collect payment through its dashboard
type LegacyPayment struct {
	Method    string `json:"method"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}
