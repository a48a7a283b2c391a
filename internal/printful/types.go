package printful

// StoreProduct is an entry of the store product listing
type StoreProduct struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	Variants     int    `json:"variants"`
	Synced       int    `json:"synced"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type SyncProduct struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type SyncVariant struct {
	ID                 int64  `json:"id"`
	SyncProductID      int64  `json:"sync_product_id"`
	Name               string `json:"name"`
	Size               string `json:"size"`
	RetailPrice        string `json:"retail_price"`
	Currency           string `json:"currency"`
	AvailabilityStatus string `json:"availability_status"`
}

// ProductDetail is a product with its sync variants
type ProductDetail struct {
	SyncProduct  SyncProduct   `json:"sync_product"`
	SyncVariants []SyncVariant `json:"sync_variants"`
}

// VariantForSize returns the first sync variant whose size label matches exactly
func (d *ProductDetail) VariantForSize(size string) (*SyncVariant, bool) {
	for i := range d.SyncVariants {
		if d.SyncVariants[i].Size == size {
			return &d.SyncVariants[i], true
		}
	}
	return nil, false
}

// Costs is the provider's cost breakdown, all values decimal strings
type Costs struct {
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

// Order is the provider's order as returned from create
type Order struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Status       string `json:"status"`
	DashboardURL string `json:"dashboard_url"`
	Costs        *Costs `json:"costs,omitempty"`
}
