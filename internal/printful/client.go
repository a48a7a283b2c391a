package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// APIError is a non-2xx answer from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err carries a provider error and returns it
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a provider client authenticated with a bearer API key
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     util.GetLogger(),
	}
}

// envelope is the provider's response wrapper. On errors result holds the message string.
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ListStoreProducts returns the store's synced products (single page)
func (c *Client) ListStoreProducts(ctx context.Context) ([]StoreProduct, error) {
	var products []StoreProduct
	if err := c.do(ctx, "list_products", http.MethodGet, "/store/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetStoreProduct returns a product with its sync variants
func (c *Client) GetStoreProduct(ctx context.Context, productID int64) (*ProductDetail, error) {
	var detail ProductDetail
	path := fmt.Sprintf("/store/products/%d", productID)
	if err := c.do(ctx, "get_product", http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateOrder submits a draft order
func (c *Client) CreateOrder(ctx context.Context, order *models.DraftOrder) (*Order, error) {
	var created Order
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ConfirmOrder approves a draft order for fulfillment. The raw provider result is returned.
func (c *Client) ConfirmOrder(ctx context.Context, orderID int64, payment *models.PaymentDetails) (json.RawMessage, error) {
	body := confirmRequest{Payment: payment}
	var result json.RawMessage
	path := fmt.Sprintf("/orders/%d/confirm", orderID)
	if err := c.do(ctx, "confirm_order", http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type confirmRequest struct {
	Payment *models.PaymentDetails `json:"payment,omitempty"`
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	ctx, span := util.StartSpan(ctx, "Printful."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		util.UpstreamRequestDuration.WithLabelValues("printful", operation).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printful %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(env, decodeErr, operation)}
		c.logger.Error("Printful API error",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", operation, decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", operation, err)
	}
	return nil
}

func errorMessage(env envelope, decodeErr error, operation string) string {
	if decodeErr == nil {
		var msg string
		if err := json.Unmarshal(env.Result, &msg); err == nil && msg != "" {
			return msg
		}
		if env.Error != nil && env.Error.Message != "" {
			return env.Error.Message
		}
	}
	if msg, ok := fallbackMessages[operation]; ok {
		return msg
	}
	return fmt.Sprintf("printful %s failed", strings.ReplaceAll(operation, "_", " "))
}

var fallbackMessages = map[string]string{
	"list_products": "Failed to fetch Printful products",
	"get_product":   "Failed to fetch product details",
	"create_order":  "Failed to create order",
	"confirm_order": "Failed to confirm order",
}
