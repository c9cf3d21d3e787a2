package extension

import "time"

// Config holds the entitlements extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.entitlements" or
// "entitlements" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for entitlement routes (default: "/entitlements").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// StripeAPIKey authenticates calls to the Stripe API for reconciliation
	// lookups. When set together with StripeWebhookSecret, the extension
	// wires a Stripe billing provider into the engine.
	StripeAPIKey string `json:"stripe_api_key" mapstructure:"stripe_api_key" yaml:"stripe_api_key"`

	// StripeWebhookSecret verifies webhook payload signatures.
	StripeWebhookSecret string `json:"stripe_webhook_secret" mapstructure:"stripe_webhook_secret" yaml:"stripe_webhook_secret"`

	// PriceTable maps billing price ids to tier names, used to derive a
	// tenant's tier from invoice line items when event metadata is absent.
	PriceTable map[string]string `json:"price_table" mapstructure:"price_table" yaml:"price_table"`

	// ReconcileInterval is how often the background sweep looks for expired
	// promo grants (default: 1h).
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:          "/entitlements",
		ReconcileInterval: time.Hour,
	}
}
