package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies an external marketplace
type PlatformCode string

const (
	// PlatformCodeAmazon represents the Amazon marketplace (SP-API)
	PlatformCodeAmazon PlatformCode = "AMAZON"
	// PlatformCodeEbay represents the eBay marketplace (Sell APIs)
	PlatformCodeEbay PlatformCode = "EBAY"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeAmazon, PlatformCodeEbay:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeAmazon:
		return "Amazon"
	case PlatformCodeEbay:
		return "eBay"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Platform value objects
// ---------------------------------------------------------------------------

// PlatformVariant represents one sellable variant of a platform product
type PlatformVariant struct {
	// PlatformVariantID is the variant/SKU identifier on the platform
	PlatformVariantID string
	// SKU is the seller-assigned SKU code
	SKU string
	// Price is the variant price
	Price decimal.Decimal
	// Quantity is the sellable quantity the platform reports
	Quantity int64
}

// PlatformProduct represents a product as the platform reports it
type PlatformProduct struct {
	// PlatformProductID is the product identifier on the platform
	PlatformProductID string
	// Name is the product title
	Name string
	// Description is the product description
	Description string
	// Brand is the brand name
	Brand string
	// Category is the platform category identifier
	Category string
	// Price is the listing price
	Price decimal.Decimal
	// ImageURLs contains the product image URLs
	ImageURLs []string
	// Tags contains platform tags/keywords
	Tags []string
	// Attributes contains free-form product attributes
	Attributes map[string]any
	// Variants contains the product variants
	Variants []PlatformVariant
	// UpdatedAt is when the platform last modified the product
	UpdatedAt time.Time
}

// VariantPayload is one variant of an outbound create/update request
type VariantPayload struct {
	PlatformVariantID string
	SKU               string
	Price             decimal.Decimal
	Quantity          int64
}

// ProductPayload is the transformed, platform-shaped body of a product
// create/update request. The transformation layer produces it; the
// validation gate checks it before any adapter call.
type ProductPayload struct {
	SKU         string
	Name        string
	Description string
	Brand       string
	Category    string
	Price       decimal.Decimal
	ImageURLs   []string
	Tags        []string
	Attributes  map[string]any
	Variants    []VariantPayload
}

// ProductFilter narrows a GetProducts call
type ProductFilter struct {
	// UpdatedSince limits results to products modified after this time
	UpdatedSince *time.Time
	// Page is the page number (1-indexed)
	Page int
	// PageSize is the number of products per page
	PageSize int
}

// ---------------------------------------------------------------------------
// Adapter port
// ---------------------------------------------------------------------------

// Adapter is the capability interface translating generic sync calls into a
// specific platform's API calls. One concrete implementation exists per
// marketplace; instances are constructed per store from its credentials.
// Implementations must honor context cancellation and deadlines on every call.
type Adapter interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// GetProducts retrieves a page of products from the platform
	GetProducts(ctx context.Context, filter ProductFilter) ([]PlatformProduct, error)

	// GetProduct retrieves a single product from the platform
	GetProduct(ctx context.Context, platformProductID string) (*PlatformProduct, error)

	// CreateProduct creates a product on the platform and returns it with
	// its assigned platform identifiers
	CreateProduct(ctx context.Context, payload *ProductPayload) (*PlatformProduct, error)

	// UpdateProduct updates an existing product on the platform
	UpdateProduct(ctx context.Context, platformProductID string, payload *ProductPayload) (*PlatformProduct, error)

	// UpdateInventory sets the sellable quantity for one product variant
	UpdateInventory(ctx context.Context, platformProductID, platformVariantID string, quantity int64) error
}

// AdapterRegistry resolves the adapter for a store's platform. The registry
// is a map from platform code to constructor; no string-keyed factory logic
// leaks into the sync services.
type AdapterRegistry interface {
	// AdapterFor constructs the adapter for the store using its credentials
	AdapterFor(store *Store, creds *StoreCredentials) (Adapter, error)

	// SupportedPlatforms lists the registered platform codes
	SupportedPlatforms() []PlatformCode
}

// ---------------------------------------------------------------------------
// Store collaborator
// ---------------------------------------------------------------------------

// Store represents one connected marketplace account
type Store struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	PlatformCode   PlatformCode
	IsActive       bool
	LastSyncAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StoreCredentials holds the adapter construction inputs for a store
type StoreCredentials struct {
	StoreID      uuid.UUID
	PlatformCode PlatformCode
	// APIBaseURL is the platform API endpoint
	APIBaseURL string
	// AccessToken is the OAuth/LWA access token
	AccessToken string
	// SellerID is the marketplace/seller identifier
	SellerID string
}

// StoreFilter narrows a GetOrganizationStores call
type StoreFilter struct {
	PlatformCode *PlatformCode
	ActiveOnly   bool
}

// StoreProvider supplies stores and their credentials. A missing store or
// missing credentials is a fatal, non-retryable condition for the calling job.
type StoreProvider interface {
	// GetStore retrieves a store by ID
	GetStore(ctx context.Context, storeID uuid.UUID) (*Store, error)

	// GetStoreCredentials retrieves the credentials for a store scoped to an organization
	GetStoreCredentials(ctx context.Context, storeID, organizationID uuid.UUID) (*StoreCredentials, error)

	// GetOrganizationStores lists the organization's stores
	GetOrganizationStores(ctx context.Context, organizationID uuid.UUID, filter StoreFilter) ([]Store, error)
}
