package platform

import (
	"time"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// ebayError is one entry of the Sell API error envelope
type ebayError struct {
	ErrorID  int    `json:"errorId"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// ebayErrorResponse is the error-only envelope the Sell APIs return on
// request failures
type ebayErrorResponse struct {
	Errors []ebayError `json:"errors,omitempty"`
}

// ebayListing is an eBay inventory item with its published offer data
type ebayListing struct {
	ListingID    string         `json:"listingId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	CategoryID   string         `json:"categoryId,omitempty"`
	Price        ebayAmount     `json:"price"`
	ImageURLs    []string       `json:"imageUrls,omitempty"`
	Aspects      map[string]any `json:"aspects,omitempty"`
	Variations   []ebayVariant  `json:"variations,omitempty"`
	LastModified time.Time      `json:"lastModifiedDate"`
}

// ebayVariant is one variation of a multi-variation listing
type ebayVariant struct {
	VariationID string     `json:"variationId"`
	SKU         string     `json:"sku"`
	Price       ebayAmount `json:"price"`
	Quantity    int64      `json:"availableQuantity"`
}

// ebayAmount is the Sell API money shape
type ebayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
}

// ebayListingsResponse is the paginated listings envelope
type ebayListingsResponse struct {
	Listings []ebayListing `json:"listings"`
	Total    int           `json:"total"`
	Errors   []ebayError   `json:"errors,omitempty"`
}

// ebayListingRequest is the outbound create/update body
type ebayListingRequest struct {
	SKU         string         `json:"sku"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	CategoryID  string         `json:"categoryId,omitempty"`
	Price       ebayAmount     `json:"price"`
	ImageURLs   []string       `json:"imageUrls,omitempty"`
	Aspects     map[string]any `json:"aspects,omitempty"`
	Variations  []ebayVariant  `json:"variations,omitempty"`
}

// ebayInventoryRequest is the outbound quantity update body
type ebayInventoryRequest struct {
	VariationID string `json:"variationId,omitempty"`
	Quantity    int64  `json:"availableQuantity"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func (l *ebayListing) toDomain() domain.PlatformProduct {
	product := domain.PlatformProduct{
		PlatformProductID: l.ListingID,
		Name:              l.Title,
		Description:       l.Description,
		Brand:             l.Brand,
		Category:          l.CategoryID,
		Price:             parseDecimal(l.Price.Value),
		ImageURLs:         l.ImageURLs,
		Attributes:        l.Aspects,
		UpdatedAt:         l.LastModified,
	}
	for _, v := range l.Variations {
		product.Variants = append(product.Variants, domain.PlatformVariant{
			PlatformVariantID: v.VariationID,
			SKU:               v.SKU,
			Price:             parseDecimal(v.Price.Value),
			Quantity:          v.Quantity,
		})
	}
	return product
}

func ebayRequestFromPayload(payload *domain.ProductPayload) ebayListingRequest {
	req := ebayListingRequest{
		SKU:         payload.SKU,
		Title:       payload.Name,
		Description: payload.Description,
		Brand:       payload.Brand,
		CategoryID:  payload.Category,
		Price:       ebayAmount{Value: payload.Price.StringFixed(2), Currency: "USD"},
		ImageURLs:   payload.ImageURLs,
		Aspects:     payload.Attributes,
	}
	for _, variant := range payload.Variants {
		req.Variations = append(req.Variations, ebayVariant{
			VariationID: variant.PlatformVariantID,
			SKU:         variant.SKU,
			Price:       ebayAmount{Value: variant.Price.StringFixed(2), Currency: "USD"},
			Quantity:    variant.Quantity,
		})
	}
	return req
}
