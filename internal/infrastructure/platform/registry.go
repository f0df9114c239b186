// Package platform contains the marketplace adapters and their registry.
// Each adapter translates the generic sync operations into one platform's
// API calls; the registry constructs adapters per store from its credentials.
package platform

import (
	"fmt"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// Registry builds platform adapters from store credentials.
type Registry struct {
	// sandbox routes all adapters to the platforms' sandbox endpoints
	sandbox bool
	// timeoutSeconds is the per-request HTTP timeout applied to adapters
	timeoutSeconds int
}

// RegistryOption configures the registry
type RegistryOption func(*Registry)

// WithSandbox routes adapters to sandbox endpoints
func WithSandbox() RegistryOption {
	return func(r *Registry) { r.sandbox = true }
}

// WithTimeoutSeconds sets the adapter HTTP timeout
func WithTimeoutSeconds(seconds int) RegistryOption {
	return func(r *Registry) { r.timeoutSeconds = seconds }
}

// NewRegistry creates an adapter registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{timeoutSeconds: 30}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ domain.AdapterRegistry = (*Registry)(nil)

// AdapterFor constructs an adapter for the store from its credentials. The
// credentials' explicit APIBaseURL wins over the sandbox/production default.
func (r *Registry) AdapterFor(store *domain.Store, creds *domain.StoreCredentials) (domain.Adapter, error) {
	if store == nil || creds == nil {
		return nil, domain.ErrCredentialsNotFound
	}

	switch store.PlatformCode {
	case domain.PlatformCodeAmazon:
		cfg := NewAmazonConfig(creds.AccessToken, creds.SellerID)
		cfg.TimeoutSeconds = r.timeoutSeconds
		if r.sandbox {
			cfg.APIBaseURL = AmazonSandboxAPIURL
		}
		if creds.APIBaseURL != "" {
			cfg.APIBaseURL = creds.APIBaseURL
		}
		return NewAmazonAdapter(cfg)

	case domain.PlatformCodeEbay:
		cfg := NewEbayConfig(creds.AccessToken)
		cfg.TimeoutSeconds = r.timeoutSeconds
		if r.sandbox {
			cfg.APIBaseURL = EbaySandboxAPIURL
		}
		if creds.APIBaseURL != "" {
			cfg.APIBaseURL = creds.APIBaseURL
		}
		return NewEbayAdapter(cfg)

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, store.PlatformCode)
	}
}

// SupportedPlatforms lists the platforms the registry can construct
func (r *Registry) SupportedPlatforms() []domain.PlatformCode {
	return []domain.PlatformCode{domain.PlatformCodeAmazon, domain.PlatformCodeEbay}
}
