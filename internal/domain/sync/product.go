package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocalVariant is one sellable variant of a local product
type LocalVariant struct {
	ID    uuid.UUID
	SKU   string
	Price decimal.Decimal
}

// LocalProduct is the merchant's internal product record as the sync engine
// sees it. Only the fields that participate in synchronization are modeled.
type LocalProduct struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Code           string
	Name           string
	Description    string
	Brand          string
	Category       string
	Price          decimal.Decimal
	ImageURLs      []string
	Tags           []string
	Attributes     map[string]any
	Variants       []LocalVariant
	UpdatedAt      time.Time
}

// ProductStore reads and writes local product records
type ProductStore interface {
	// ListProducts lists all products for an organization
	ListProducts(ctx context.Context, organizationID uuid.UUID) ([]LocalProduct, error)

	// GetProduct retrieves one product
	GetProduct(ctx context.Context, id uuid.UUID) (*LocalProduct, error)

	// CreateProduct creates a product pulled in from a platform
	CreateProduct(ctx context.Context, product *LocalProduct) error

	// UpdateProductFields applies resolved field values to a product.
	// Keys use the local field names (name, description, images, ...).
	UpdateProductFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}
