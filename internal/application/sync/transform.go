package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Platform profiles
// ---------------------------------------------------------------------------

// TransformRules shape a local product into one platform's schema without
// per-platform branching in the sync services.
type TransformRules struct {
	// AttributeRenames maps local attribute keys to platform attribute keys.
	AttributeRenames map[string]string
	// DefaultCategory fills in when the local product has no category.
	DefaultCategory string
	// BrandFallback fills in when the local product has no brand.
	BrandFallback string
}

// ValidationRules are one platform's required/optional field constraints.
// The gate runs before any create/update call; a violation fails only that
// product's sync.
type ValidationRules struct {
	// RequiredFields may contain: sku, name, description, brand, category,
	// price, images.
	RequiredFields []string
	// MaxNameLength bounds the title length when > 0.
	MaxNameLength int
	// MaxImages bounds the image count when > 0.
	MaxImages int
	// RequirePositivePrice rejects zero or negative prices.
	RequirePositivePrice bool
}

// PlatformProfile bundles a platform's transform and validation rules.
type PlatformProfile struct {
	Transform  TransformRules
	Validation ValidationRules
}

// DefaultProfiles returns the built-in marketplace profiles.
func DefaultProfiles() map[domain.PlatformCode]PlatformProfile {
	return map[domain.PlatformCode]PlatformProfile{
		domain.PlatformCodeAmazon: {
			Transform: TransformRules{
				AttributeRenames: map[string]string{
					"color": "color_name",
					"size":  "size_name",
				},
				DefaultCategory: "misc",
				BrandFallback:   "Generic",
			},
			Validation: ValidationRules{
				RequiredFields:       []string{"sku", "name", "brand", "category"},
				MaxNameLength:        200,
				MaxImages:            9,
				RequirePositivePrice: true,
			},
		},
		domain.PlatformCodeEbay: {
			Transform: TransformRules{
				AttributeRenames: map[string]string{},
				DefaultCategory:  "other",
				BrandFallback:    "Unbranded",
			},
			Validation: ValidationRules{
				RequiredFields:       []string{"name"},
				MaxNameLength:        80,
				MaxImages:            12,
				RequirePositivePrice: true,
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Transformer
// ---------------------------------------------------------------------------

// Transformer converts products between the local schema and each platform's
// schema and enforces the platform's validation gate.
type Transformer struct {
	profiles map[domain.PlatformCode]PlatformProfile
}

// NewTransformer creates a transformer. A nil profile map uses the defaults.
func NewTransformer(profiles map[domain.PlatformCode]PlatformProfile) *Transformer {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Transformer{profiles: profiles}
}

func (t *Transformer) profile(code domain.PlatformCode) (PlatformProfile, error) {
	p, ok := t.profiles[code]
	if !ok {
		return PlatformProfile{}, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, code)
	}
	return p, nil
}

// ToPayload shapes a local product into the platform's outbound payload.
func (t *Transformer) ToPayload(code domain.PlatformCode, product *domain.LocalProduct) (*domain.ProductPayload, error) {
	profile, err := t.profile(code)
	if err != nil {
		return nil, err
	}
	rules := profile.Transform

	payload := &domain.ProductPayload{
		SKU:         product.Code,
		Name:        product.Name,
		Description: product.Description,
		Brand:       product.Brand,
		Category:    product.Category,
		Price:       product.Price,
		ImageURLs:   append([]string(nil), product.ImageURLs...),
		Tags:        append([]string(nil), product.Tags...),
	}

	if payload.Brand == "" {
		payload.Brand = rules.BrandFallback
	}
	if payload.Category == "" {
		payload.Category = rules.DefaultCategory
	}

	if len(product.Attributes) > 0 {
		payload.Attributes = make(map[string]any, len(product.Attributes))
		for key, value := range product.Attributes {
			if renamed, ok := rules.AttributeRenames[key]; ok {
				key = renamed
			}
			payload.Attributes[key] = value
		}
	}

	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, domain.VariantPayload{
			SKU:   variant.SKU,
			Price: variant.Price,
		})
	}

	return payload, nil
}

// ToLocal shapes a platform product into a new local product record, with
// fresh local identifiers. Platform attribute renames are reversed.
func (t *Transformer) ToLocal(code domain.PlatformCode, product *domain.PlatformProduct, organizationID uuid.UUID) (*domain.LocalProduct, error) {
	profile, err := t.profile(code)
	if err != nil {
		return nil, err
	}

	reversed := make(map[string]string, len(profile.Transform.AttributeRenames))
	for local, platform := range profile.Transform.AttributeRenames {
		reversed[platform] = local
	}

	local := &domain.LocalProduct{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Code:           product.PlatformProductID,
		Name:           product.Name,
		Description:    product.Description,
		Brand:          product.Brand,
		Category:       product.Category,
		Price:          product.Price,
		ImageURLs:      append([]string(nil), product.ImageURLs...),
		Tags:           append([]string(nil), product.Tags...),
		UpdatedAt:      time.Now(),
	}

	if len(product.Attributes) > 0 {
		local.Attributes = make(map[string]any, len(product.Attributes))
		for key, value := range product.Attributes {
			if renamed, ok := reversed[key]; ok {
				key = renamed
			}
			local.Attributes[key] = value
		}
	}

	for _, variant := range product.Variants {
		local.Variants = append(local.Variants, domain.LocalVariant{
			ID:    uuid.New(),
			SKU:   variant.SKU,
			Price: variant.Price,
		})
	}

	return local, nil
}

// Validate runs the platform's field rules against a transformed payload.
// Violations wrap ErrPayloadValidation.
func (t *Transformer) Validate(code domain.PlatformCode, payload *domain.ProductPayload) error {
	profile, err := t.profile(code)
	if err != nil {
		return err
	}
	rules := profile.Validation

	for _, field := range rules.RequiredFields {
		missing := false
		switch field {
		case "sku":
			missing = payload.SKU == ""
		case "name":
			missing = payload.Name == ""
		case "description":
			missing = payload.Description == ""
		case "brand":
			missing = payload.Brand == ""
		case "category":
			missing = payload.Category == ""
		case "price":
			missing = payload.Price.IsZero()
		case "images":
			missing = len(payload.ImageURLs) == 0
		}
		if missing {
			return fmt.Errorf("%w: %s requires field %q", domain.ErrPayloadValidation, code, field)
		}
	}

	if rules.MaxNameLength > 0 && len(payload.Name) > rules.MaxNameLength {
		return fmt.Errorf("%w: %s name exceeds %d characters", domain.ErrPayloadValidation, code, rules.MaxNameLength)
	}
	if rules.MaxImages > 0 && len(payload.ImageURLs) > rules.MaxImages {
		return fmt.Errorf("%w: %s allows at most %d images", domain.ErrPayloadValidation, code, rules.MaxImages)
	}
	if rules.RequirePositivePrice && !payload.Price.IsPositive() {
		return fmt.Errorf("%w: %s requires a positive price", domain.ErrPayloadValidation, code)
	}

	return nil
}
