package platform

import "errors"

// EbayConfig holds configuration for the eBay Sell APIs
type EbayConfig struct {
	// AccessToken is the OAuth user access token
	AccessToken string
	// MarketplaceID is the target marketplace (e.g. EBAY_US)
	MarketplaceID string
	// APIBaseURL is the Sell API endpoint (production or sandbox)
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// EbayProductionAPIURL is the production API endpoint
	EbayProductionAPIURL = "https://api.ebay.com"
	// EbaySandboxAPIURL is the sandbox API endpoint
	EbaySandboxAPIURL = "https://api.sandbox.ebay.com"
	// EbayDefaultMarketplaceID is the US marketplace
	EbayDefaultMarketplaceID = "EBAY_US"
)

// ErrEbayConfigMissingToken indicates a missing OAuth token
var ErrEbayConfigMissingToken = errors.New("ebay: access token is required")

// NewEbayConfig creates a new eBay configuration with defaults
func NewEbayConfig(accessToken string) *EbayConfig {
	return &EbayConfig{
		AccessToken:    accessToken,
		MarketplaceID:  EbayDefaultMarketplaceID,
		APIBaseURL:     EbayProductionAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the eBay configuration and fills defaults
func (c *EbayConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrEbayConfigMissingToken
	}
	if c.MarketplaceID == "" {
		c.MarketplaceID = EbayDefaultMarketplaceID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EbayProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
