package platform

import "errors"

// AmazonConfig holds configuration for the Amazon Selling Partner API
type AmazonConfig struct {
	// AccessToken is the LWA access token for the seller
	AccessToken string
	// SellerID is the merchant identifier on Amazon
	SellerID string
	// MarketplaceID is the target marketplace (e.g. ATVPDKIKX0DER for US)
	MarketplaceID string
	// APIBaseURL is the SP-API endpoint (production or sandbox)
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// AmazonProductionAPIURL is the North America production endpoint
	AmazonProductionAPIURL = "https://sellingpartnerapi-na.amazon.com"
	// AmazonSandboxAPIURL is the North America sandbox endpoint
	AmazonSandboxAPIURL = "https://sandbox.sellingpartnerapi-na.amazon.com"
	// AmazonDefaultMarketplaceID is the US marketplace
	AmazonDefaultMarketplaceID = "ATVPDKIKX0DER"
)

// Errors for Amazon configuration
var (
	ErrAmazonConfigMissingToken    = errors.New("amazon: access token is required")
	ErrAmazonConfigMissingSellerID = errors.New("amazon: seller ID is required")
)

// NewAmazonConfig creates a new Amazon configuration with defaults
func NewAmazonConfig(accessToken, sellerID string) *AmazonConfig {
	return &AmazonConfig{
		AccessToken:    accessToken,
		SellerID:       sellerID,
		MarketplaceID:  AmazonDefaultMarketplaceID,
		APIBaseURL:     AmazonProductionAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Amazon configuration and fills defaults
func (c *AmazonConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrAmazonConfigMissingToken
	}
	if c.SellerID == "" {
		return ErrAmazonConfigMissingSellerID
	}
	if c.MarketplaceID == "" {
		c.MarketplaceID = AmazonDefaultMarketplaceID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = AmazonProductionAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
