package service

import (
	"context"
	"fmt"

	"storefront/internal/fanout"
	"storefront/internal/models"
	"storefront/internal/printful"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	placeholderImage       = "/placeholder-product.jpg"
	defaultDescription     = "Support Ukraine through art"
	storeURLFormat         = "https://www.printful.com/uk/%d"
	variantStatusAvailable = "active"
)

// CatalogService shapes provider products for display
type CatalogService struct {
	client         FulfillmentClient
	currencySymbol string
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(client FulfillmentClient, currencySymbol string) *CatalogService {
	return &CatalogService{
		client:         client,
		currencySymbol: currencySymbol,
		logger:         util.GetLogger(),
	}
}

// ListProducts fetches the listing and then every product's detail concurrently.
// A product whose detail fetch fails is replaced by a placeholder; only a failed
// listing fails the call.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	listing, err := s.client.ListStoreProducts(ctx)
	if err != nil {
		util.CatalogFetchFailuresTotal.WithLabelValues("listing").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to list store products: %w", err)
	}
	span.SetAttributes(attribute.Int("catalog.products", len(listing)))

	results, _ := fanout.Gather(ctx, listing, func(ctx context.Context, p printful.StoreProduct) (*printful.ProductDetail, error) {
		return s.client.GetStoreProduct(ctx, p.ID)
	}, fanout.Isolate)

	products := make([]models.Product, len(listing))
	for i, res := range results {
		if res.Err != nil {
			util.CatalogFetchFailuresTotal.WithLabelValues("detail").Inc()
			s.logger.Error("Failed to fetch product details",
				zap.Int64("product_id", listing[i].ID),
				zap.Error(res.Err))
			products[i] = s.placeholder(listing[i])
			continue
		}
		products[i] = s.shape(listing[i], res.Value)
	}

	return products, nil
}

func (s *CatalogService) shape(p printful.StoreProduct, detail *printful.ProductDetail) models.Product {
	price := "0.00"
	if len(detail.SyncVariants) > 0 && detail.SyncVariants[0].RetailPrice != "" {
		price = detail.SyncVariants[0].RetailPrice
	}

	image := detail.SyncProduct.ThumbnailURL
	if image == "" {
		image = placeholderImage
	}
	description := detail.SyncProduct.Name
	if description == "" {
		description = defaultDescription
	}

	variants := make([]models.Variant, 0, len(detail.SyncVariants))
	for _, v := range detail.SyncVariants {
		variants = append(variants, models.Variant{
			ID:        v.ID,
			Size:      v.Size,
			Price:     s.currencySymbol + v.RetailPrice,
			Available: v.AvailabilityStatus == variantStatusAvailable,
		})
	}

	return models.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       s.currencySymbol + price,
		Image:       image,
		Description: description,
		StoreURL:    fmt.Sprintf(storeURLFormat, p.ID),
		Variants:    variants,
	}
}

func (s *CatalogService) placeholder(p printful.StoreProduct) models.Product {
	return models.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       s.currencySymbol + "0.00",
		Image:       placeholderImage,
		Description: defaultDescription,
		StoreURL:    fmt.Sprintf(storeURLFormat, p.ID),
		Variants:    []models.Variant{},
	}
}
