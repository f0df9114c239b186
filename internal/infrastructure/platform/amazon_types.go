package platform

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// amazonError is one entry of the SP-API error envelope
type amazonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// amazonListing is an Amazon catalog listing as the SP-API reports it
type amazonListing struct {
	ASIN        string         `json:"asin"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	ProductType string         `json:"productType,omitempty"`
	Price       string         `json:"price,omitempty"`
	Images      []string       `json:"images,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Offers      []amazonOffer  `json:"offers,omitempty"`
	LastUpdated time.Time      `json:"lastUpdatedDate"`
}

// amazonOffer is one sellable offer (variant) of a listing
type amazonOffer struct {
	OfferID   string `json:"offerId"`
	SellerSKU string `json:"sellerSku"`
	Price     string `json:"price,omitempty"`
	Quantity  int64  `json:"fulfillableQuantity"`
}

// amazonListingsResponse is the paginated listings envelope
type amazonListingsResponse struct {
	Listings []amazonListing `json:"listings"`
	Errors   []amazonError   `json:"errors,omitempty"`
}

// amazonListingResponse is the single-listing envelope
type amazonListingResponse struct {
	Listing *amazonListing `json:"listing"`
	Errors  []amazonError  `json:"errors,omitempty"`
}

// amazonListingRequest is the outbound create/update body
type amazonListingRequest struct {
	SellerSKU   string         `json:"sellerSku"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	ProductType string         `json:"productType,omitempty"`
	Price       string         `json:"price,omitempty"`
	Images      []string       `json:"images,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Offers      []amazonOffer  `json:"offers,omitempty"`
}

// amazonInventoryRequest is the outbound inventory update body
type amazonInventoryRequest struct {
	OfferID  string `json:"offerId"`
	Quantity int64  `json:"quantity"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func (l *amazonListing) toDomain() domain.PlatformProduct {
	product := domain.PlatformProduct{
		PlatformProductID: l.ASIN,
		Name:              l.Title,
		Description:       l.Description,
		Brand:             l.Brand,
		Category:          l.ProductType,
		Price:             parseDecimal(l.Price),
		ImageURLs:         l.Images,
		Tags:              l.Keywords,
		Attributes:        l.Attributes,
		UpdatedAt:         l.LastUpdated,
	}
	for _, offer := range l.Offers {
		product.Variants = append(product.Variants, domain.PlatformVariant{
			PlatformVariantID: offer.OfferID,
			SKU:               offer.SellerSKU,
			Price:             parseDecimal(offer.Price),
			Quantity:          offer.Quantity,
		})
	}
	return product
}

func amazonRequestFromPayload(payload *domain.ProductPayload) amazonListingRequest {
	req := amazonListingRequest{
		SellerSKU:   payload.SKU,
		Title:       payload.Name,
		Description: payload.Description,
		Brand:       payload.Brand,
		ProductType: payload.Category,
		Price:       payload.Price.StringFixed(2),
		Images:      payload.ImageURLs,
		Keywords:    payload.Tags,
		Attributes:  payload.Attributes,
	}
	for _, variant := range payload.Variants {
		req.Offers = append(req.Offers, amazonOffer{
			OfferID:   variant.PlatformVariantID,
			SellerSKU: variant.SKU,
			Price:     variant.Price.StringFixed(2),
			Quantity:  variant.Quantity,
		})
	}
	return req
}

// parseDecimal parses a price string, returning zero on malformed input.
// Platforms occasionally return empty strings for unpriced items.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
