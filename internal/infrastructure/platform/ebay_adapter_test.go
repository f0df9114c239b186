package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

func TestEbayConfig_Validate(t *testing.T) {
	config := &EbayConfig{}
	assert.ErrorIs(t, config.Validate(), ErrEbayConfigMissingToken)

	config = &EbayConfig{AccessToken: "token"}
	require.NoError(t, config.Validate())
	assert.Equal(t, EbayProductionAPIURL, config.APIBaseURL)
	assert.Equal(t, EbayDefaultMarketplaceID, config.MarketplaceID)
	assert.Equal(t, 30, config.TimeoutSeconds)
}

func newTestEbayAdapter(t *testing.T, handler http.HandlerFunc) *EbayAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewEbayConfig("test-token")
	config.APIBaseURL = server.URL
	adapter, err := NewEbayAdapter(config)
	require.NoError(t, err)
	return adapter
}

func TestEbayAdapter_GetProducts(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		assert.Equal(t, "/sell/inventory/v1/listing", r.URL.Path)
		// Page 3 at 50 per page starts at offset 100.
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))

		json.NewEncoder(w).Encode(ebayListingsResponse{
			Listings: []ebayListing{{
				ListingID:    "110012345",
				Title:        "Cotton T-Shirt",
				Price:        ebayAmount{Value: "21.50", Currency: "USD"},
				LastModified: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				Variations: []ebayVariant{
					{VariationID: "VAR-1", SKU: "TSHIRT-01-L", Price: ebayAmount{Value: "21.50"}, Quantity: 7},
				},
			}},
			Total: 1,
		})
	})

	products, err := adapter.GetProducts(context.Background(), domain.ProductFilter{Page: 3, PageSize: 50})
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, "110012345", products[0].PlatformProductID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromFloat(21.50)))
	require.Len(t, products[0].Variants, 1)
	assert.Equal(t, "VAR-1", products[0].Variants[0].PlatformVariantID)
	assert.Equal(t, int64(7), products[0].Variants[0].Quantity)
}

func TestEbayAdapter_GetProduct(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sell/inventory/v1/listing/110012345", r.URL.Path)
		json.NewEncoder(w).Encode(ebayListing{ListingID: "110012345", Title: "Cotton T-Shirt"})
	})

	product, err := adapter.GetProduct(context.Background(), "110012345")
	require.NoError(t, err)
	assert.Equal(t, "110012345", product.PlatformProductID)
	assert.Equal(t, "Cotton T-Shirt", product.Name)
}

func TestEbayAdapter_CreateProduct(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req ebayListingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TSHIRT-01", req.SKU)
		assert.Equal(t, "21.50", req.Price.Value)

		json.NewEncoder(w).Encode(ebayListing{
			ListingID: "110099999",
			Title:     req.Title,
		})
	})

	created, err := adapter.CreateProduct(context.Background(), &domain.ProductPayload{
		SKU:   "TSHIRT-01",
		Name:  "Cotton T-Shirt",
		Price: decimal.NewFromFloat(21.50),
	})
	require.NoError(t, err)
	assert.Equal(t, "110099999", created.PlatformProductID)
}

func TestEbayAdapter_UpdateInventory(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/sell/inventory/v1/listing/110012345/quantity", r.URL.Path)

		var req ebayInventoryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "VAR-1", req.VariationID)
		assert.Equal(t, int64(15), req.Quantity)

		w.WriteHeader(http.StatusNoContent)
	})

	err := adapter.UpdateInventory(context.Background(), "110012345", "VAR-1", 15)
	assert.NoError(t, err)
}

func TestEbayAdapter_ErrorEnvelope(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ebayErrorResponse{
			Errors: []ebayError{{ErrorID: 25001, Message: "listing not found"}},
		})
	})

	_, err := adapter.GetProduct(context.Background(), "110012345")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlatformRequestFailed)
	assert.Contains(t, err.Error(), "25001")
}

func TestEbayAdapter_RateLimited(t *testing.T) {
	adapter := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := adapter.GetProducts(context.Background(), domain.ProductFilter{})
	assert.ErrorIs(t, err, domain.ErrPlatformRateLimited)
}
