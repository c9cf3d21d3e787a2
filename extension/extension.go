// Package extension provides the Forge extension adapter for the
// entitlement engine.
//
// It implements the forge.Extension interface to integrate entitlement
// reconciliation into a Forge application with automatic dependency
// discovery, DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.entitlements" or
// "entitlements" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/billing/stripeprovider"
	"github.com/cwinhagen-sys/spell-school-sub003/store"
	"github.com/cwinhagen-sys/spell-school-sub003/store/memory"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "entitlements"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription entitlement reconciliation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the entitlement engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *entitlements.Engine
	store      store.Store
	engineOpts []entitlements.Option
}

// New creates a new entitlements Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying entitlement engine.
// This is nil until Register is called.
func (e *Extension) Engine() *entitlements.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the entitlement engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := entitlements.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*entitlements.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("entitlements: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("entitlements: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs entitlements.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []entitlements.Option {
	opts := make([]entitlements.Option, 0, len(e.engineOpts)+3)

	if e.config.StripeAPIKey != "" && e.config.StripeWebhookSecret != "" {
		provider := stripeprovider.New(e.config.StripeAPIKey, e.config.StripeWebhookSecret)
		opts = append(opts, entitlements.WithProvider(provider))
	}

	if len(e.config.PriceTable) > 0 {
		prices := make(tier.PriceTable, len(e.config.PriceTable))
		for priceID, name := range e.config.PriceTable {
			t, err := tier.Parse(name)
			if err != nil {
				e.Logger().Warn("entitlements: skipping price table entry",
					forge.F("price_id", priceID),
					forge.F("tier", name),
				)
				continue
			}
			prices[priceID] = t
		}
		opts = append(opts, entitlements.WithPriceTable(prices))
	}

	if e.config.ReconcileInterval > 0 {
		opts = append(opts, entitlements.WithReconcileInterval(e.config.ReconcileInterval))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("entitlements: configuration is required but not found in config files; " +
				"ensure 'extensions.entitlements' or 'entitlements' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("entitlements: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("reconcile_interval", e.config.ReconcileInterval),
		forge.F("stripe_configured", e.config.StripeAPIKey != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.entitlements" first (namespaced pattern).
	if cm.IsSet("extensions.entitlements") {
		if err := cm.Bind("extensions.entitlements", &cfg); err == nil {
			e.Logger().Debug("entitlements: loaded config from file",
				forge.F("key", "extensions.entitlements"),
			)
			return cfg, true
		}
		e.Logger().Warn("entitlements: failed to bind extensions.entitlements config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "entitlements" key.
	if cm.IsSet("entitlements") {
		if err := cm.Bind("entitlements", &cfg); err == nil {
			e.Logger().Debug("entitlements: loaded config from file",
				forge.F("key", "entitlements"),
			)
			return cfg, true
		}
		e.Logger().Warn("entitlements: failed to bind entitlements config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = defaults.ReconcileInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.StripeAPIKey == "" && programmaticConfig.StripeAPIKey != "" {
		yamlConfig.StripeAPIKey = programmaticConfig.StripeAPIKey
	}
	if yamlConfig.StripeWebhookSecret == "" && programmaticConfig.StripeWebhookSecret != "" {
		yamlConfig.StripeWebhookSecret = programmaticConfig.StripeWebhookSecret
	}

	// Map/duration fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.PriceTable) == 0 && len(programmaticConfig.PriceTable) > 0 {
		yamlConfig.PriceTable = programmaticConfig.PriceTable
	}
	if yamlConfig.ReconcileInterval == 0 && programmaticConfig.ReconcileInterval != 0 {
		yamlConfig.ReconcileInterval = programmaticConfig.ReconcileInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
