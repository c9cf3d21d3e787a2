package extension

import (
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/plugin"
	"github.com/cwinhagen-sys/spell-school-sub003/store"
)

// Option configures the entitlements Forge extension.
type Option func(*Extension)

// WithStore sets the store for the entitlement engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes an entitlements.Option through to the underlying engine.
func WithEngineOption(opt entitlements.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an entitlement plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, entitlements.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for entitlement routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithStripe sets the Stripe credentials used to build the billing provider.
func WithStripe(apiKey, webhookSecret string) Option {
	return func(e *Extension) {
		e.config.StripeAPIKey = apiKey
		e.config.StripeWebhookSecret = webhookSecret
	}
}

// WithReconcileInterval sets how often expired promo grants are swept.
func WithReconcileInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ReconcileInterval = d }
}
