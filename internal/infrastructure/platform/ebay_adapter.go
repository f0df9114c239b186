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

// EbayAdapter implements the Adapter interface against the eBay Sell APIs.
type EbayAdapter struct {
	config     *EbayConfig
	httpClient *http.Client
}

// NewEbayAdapter creates a new eBay adapter with the given configuration
func NewEbayAdapter(config *EbayConfig) (*EbayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EbayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

var _ domain.Adapter = (*EbayAdapter)(nil)

// PlatformCode returns the platform code this adapter handles
func (a *EbayAdapter) PlatformCode() domain.PlatformCode {
	return domain.PlatformCodeEbay
}

// GetProducts retrieves a page of the seller's listings. eBay paginates with
// limit/offset rather than page numbers.
func (a *EbayAdapter) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.PlatformProduct, error) {
	query := url.Values{}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	query.Set("limit", strconv.Itoa(pageSize))
	if filter.Page > 1 {
		query.Set("offset", strconv.Itoa((filter.Page-1)*pageSize))
	}
	if filter.UpdatedSince != nil {
		query.Set("modifiedAfter", filter.UpdatedSince.UTC().Format(time.RFC3339))
	}

	body, err := a.doRequest(ctx, http.MethodGet, "/sell/inventory/v1/listing?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp ebayListingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, apiError(domain.PlatformCodeEbay, strconv.Itoa(resp.Errors[0].ErrorID), resp.Errors[0].Message)
	}

	products := make([]domain.PlatformProduct, 0, len(resp.Listings))
	for i := range resp.Listings {
		products = append(products, resp.Listings[i].toDomain())
	}
	return products, nil
}

// GetProduct retrieves one listing by its listing ID
func (a *EbayAdapter) GetProduct(ctx context.Context, platformProductID string) (*domain.PlatformProduct, error) {
	if platformProductID == "" {
		return nil, fmt.Errorf("%w: empty listing ID", domain.ErrPlatformRequestFailed)
	}

	body, err := a.doRequest(ctx, http.MethodGet, "/sell/inventory/v1/listing/"+url.PathEscape(platformProductID), nil)
	if err != nil {
		return nil, err
	}
	return decodeEbayListing(body)
}

// CreateProduct creates a new listing
func (a *EbayAdapter) CreateProduct(ctx context.Context, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	body, err := a.doRequest(ctx, http.MethodPost, "/sell/inventory/v1/listing", ebayRequestFromPayload(payload))
	if err != nil {
		return nil, err
	}
	return decodeEbayListing(body)
}

// UpdateProduct updates an existing listing
func (a *EbayAdapter) UpdateProduct(ctx context.Context, platformProductID string, payload *domain.ProductPayload) (*domain.PlatformProduct, error) {
	if platformProductID == "" {
		return nil, fmt.Errorf("%w: empty listing ID", domain.ErrPlatformRequestFailed)
	}

	body, err := a.doRequest(ctx, http.MethodPut, "/sell/inventory/v1/listing/"+url.PathEscape(platformProductID), ebayRequestFromPayload(payload))
	if err != nil {
		return nil, err
	}
	return decodeEbayListing(body)
}

// UpdateInventory sets the available quantity for one variation
func (a *EbayAdapter) UpdateInventory(ctx context.Context, platformProductID, platformVariantID string, quantity int64) error {
	if platformProductID == "" {
		return fmt.Errorf("%w: empty listing ID", domain.ErrPlatformRequestFailed)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: negative quantity", domain.ErrPlatformRequestFailed)
	}

	path := "/sell/inventory/v1/listing/" + url.PathEscape(platformProductID) + "/quantity"
	body, err := a.doRequest(ctx, http.MethodPut, path, ebayInventoryRequest{
		VariationID: platformVariantID,
		Quantity:    quantity,
	})
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var resp ebayErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Errors) > 0 {
		return apiError(domain.PlatformCodeEbay, strconv.Itoa(resp.Errors[0].ErrorID), resp.Errors[0].Message)
	}
	return nil
}

func decodeEbayListing(body []byte) (*domain.PlatformProduct, error) {
	var listing ebayListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlatformInvalidResponse, err)
	}
	if listing.ListingID == "" {
		var resp ebayErrorResponse
		if err := json.Unmarshal(body, &resp); err == nil && len(resp.Errors) > 0 {
			return nil, apiError(domain.PlatformCodeEbay, strconv.Itoa(resp.Errors[0].ErrorID), resp.Errors[0].Message)
		}
		return nil, fmt.Errorf("%w: response has no listing", domain.ErrPlatformInvalidResponse)
	}

	product := listing.toDomain()
	return &product, nil
}

// doRequest executes one authenticated Sell API call
func (a *EbayAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ebay: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", a.config.MarketplaceID)
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
		return nil, fmt.Errorf("ebay: failed to read response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}
