package entitlements

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/plugin"
	"github.com/cwinhagen-sys/spell-school-sub003/store"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Engine is the entitlement reconciliation engine. It keeps every
// tenant's stored tier consistent with the payment provider's view and
// enforces the per-tier limit table on tenant resources.
type Engine struct {
	store    store.Store
	provider billing.Provider
	prices   tier.PriceTable
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Background worker
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	reconcileInterval time.Duration
	reconcileBatch    int

	// Pending manual downgrade reports, keyed by tenant.
	mu      sync.Mutex
	pending map[string]*DowngradeReport

	now func() time.Time
}

// New creates a new Engine backed by the given store.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		prices:            tier.PriceTable{},
		stopChan:          make(chan struct{}),
		reconcileInterval: time.Hour,
		reconcileBatch:    100,
		pending:           make(map[string]*DowngradeReport),
		now:               func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithProvider sets the outbound payment provider used to resolve
// events that arrive without expanded references.
func WithProvider(p billing.Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithPriceTable sets the price id to tier mapping used as the last
// resort when deriving a tier from renewal events.
func WithPriceTable(pt tier.PriceTable) Option {
	return func(e *Engine) {
		e.prices = pt
	}
}

// WithReconcileInterval sets how often expired promotional grants are
// swept back to the free tier.
func WithReconcileInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.reconcileInterval = d
	}
}

// WithClock overrides the engine clock. Tests use this to control
// grant expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Start migrates the store, initializes plugins, and launches the
// grant reconciliation worker.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.wg.Add(1)
	go e.reconcileWorker(ctx)

	e.logger.Info("entitlement engine started",
		"reconcile_interval", e.reconcileInterval,
	)

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the engine's plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// reconcileWorker periodically sweeps expired promotional grants.
func (e *Engine) reconcileWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return

		case <-ticker.C:
			n, err := e.ReconcileExpiredGrants(ctx)
			if err != nil {
				e.logger.Error("grant reconciliation failed", "error", err)
				continue
			}
			if n > 0 {
				e.logger.Info("reconciled expired grants", "count", n)
			}
		}
	}
}
