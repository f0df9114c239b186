package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// AmazonAdapter implements the Adapter interface against the Amazon Selling
// Partner API listings endpoints.
type AmazonAdapter struct {
	config     *AmazonConfig
	httpClient *http.Client
}

// NewAmazonAdapter creates a new Amazon adapter with the given configuration
func NewAmazonAdapter(config *AmazonConfig) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AmazonAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

var _ domain.Adapter = (*AmazonAdapter)(nil)

// PlatformCode returns the platform code this adapter handles
func (a *AmazonAdapter) PlatformCode() domain.PlatformCode {
	return domain.PlatformCodeAmazon
}

// GetProducts retrieves a page of the seller's listings
func (a *AmazonAdapter) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.PlatformProduct, error) {
	query := url.Values{}
	query.Set("marketplaceIds", a.config.MarketplaceID)
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(filter.PageSize))
	}
	if filter.UpdatedSince != nil {
		query.Set("lastUpdatedAfter", filter.UpdatedSince.UTC().Format(time.RFC3339))
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s?%s", a.config.SellerID, query.Encode())
	body, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp amazonListingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, apiError(domain.PlatformCodeAmazon, resp.Errors[0].Code, resp.Errors[0].Message)
	}

	products := make([]domain.PlatformProduct, 0, len(resp.Listings))
	for i := range resp.Listings {
		products = append(products, resp.Listings[i].toDomain())
	}
	return products, nil
}

// GetProduct retrieves one listing by ASIN
func (a *AmazonAdapter) GetProduct(ctx context.Context, platformProductID string) (*domain.PlatformProduct, error) {
	if platformProductID == "" {
		return nil, fmt.Errorf("%w: empty product ID", domain.ErrPlatformRequestFailed)
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s?marketplaceIds=%s",
		a.config.SellerID, url.PathEscape(platformProductID), a.config.MarketplaceID)
	body, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp amazonListingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, apiError(domain.PlatformCodeAmazon, resp.Errors[0].Code, resp.Errors[0].Message)
	}
	if resp.Listing == nil {
		return nil, fmt.Errorf("%w: listing %s not found", domain.ErrPlatformRequestFailed, platformProductID)
	}

	product := resp.Listing.toDomain()
	return &product, nil
}

// CreateProduct creates a new listing
func (a *AmazonAdapter) CreateProduct(ctx context.Context, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	path := fmt.Sprintf("/listings/2021-08-01/items/%s?marketplaceIds=%s",
		a.config.SellerID, a.config.MarketplaceID)
	body, err := a.doRequest(ctx, http.MethodPost, path, amazonRequestFromPayload(payload))
	if err != nil {
		return nil, err
	}

	var resp amazonListingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, apiError(domain.PlatformCodeAmazon, resp.Errors[0].Code, resp.Errors[0].Message)
	}
	if resp.Listing == nil {
		return nil, fmt.Errorf("%w: create returned no listing", domain.ErrPlatformInvalidResponse)
	}

	product := resp.Listing.toDomain()
	return &product, nil
}

// UpdateProduct updates an existing listing
func (a *AmazonAdapter) UpdateProduct(ctx context.Context, platformProductID string, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	if platformProductID == "" {
		return nil, fmt.Errorf("%w: empty product ID", domain.ErrPlatformRequestFailed)
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s?marketplaceIds=%s",
		a.config.SellerID, url.PathEscape(platformProductID), a.config.MarketplaceID)
	body, err := a.doRequest(ctx, http.MethodPut, path, amazonRequestFromPayload(payload))
	if err != nil {
		return nil, err
	}

	var resp amazonListingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, apiError(domain.PlatformCodeAmazon, resp.Errors[0].Code, resp.Errors[0].Message)
	}
	if resp.Listing == nil {
		return nil, fmt.Errorf("%w: update returned no listing", domain.ErrPlatformInvalidResponse)
	}

	product := resp.Listing.toDomain()
	return &product, nil
}

// UpdateInventory sets the fulfillable quantity for one offer
func (a *AmazonAdapter) UpdateInventory(ctx context.Context, platformProductID, platformVariantID string, quantity int64) error {
	if platformProductID == "" {
		return fmt.Errorf("%w: empty product ID", domain.ErrPlatformRequestFailed)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: negative quantity", domain.ErrPlatformRequestFailed)
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s/inventory?marketplaceIds=%s",
		a.config.SellerID, url.PathEscape(platformProductID), a.config.MarketplaceID)
	body, err := a.doRequest(ctx, http.MethodPut, path, amazonInventoryRequest{
		OfferID:  platformVariantID,
		Quantity: quantity,
	})
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var resp struct {
		Errors []amazonError `json:"errors,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return apiError(domain.PlatformCodeAmazon, resp.Errors[0].Code, resp.Errors[0].Message)
	}
	return nil
}

// doRequest executes one authenticated SP-API call
func (a *AmazonAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("amazon: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to create request: %w", err)
	}
	req.Header.Set("x-amz-access-token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to read response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// classifyStatus maps HTTP status codes onto the domain error taxonomy. The
// message keeps the numeric status so downstream retry classification works
// on raw adapter errors.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", domain.ErrPlatformRateLimited)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", domain.ErrPlatformUnavailable, status)
	case status >= 400:
		return fmt.Errorf("%w: HTTP %d", domain.ErrPlatformRequestFailed, status)
	default:
		return nil
	}
}

// apiError wraps an in-body platform error response
func apiError(code domain.PlatformCode, errCode, message string) error {
	return fmt.Errorf("%w: %s %s: %s", domain.ErrPlatformRequestFailed, code, errCode, message)
}
