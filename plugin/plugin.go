// Package plugin provides an extensible hook system for the entitlement
// engine. Plugins observe lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Billing event hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived is called for every delivery that passes signature
// verification, before the event is processed.
type OnWebhookReceived interface {
	Plugin
	OnWebhookReceived(ctx context.Context, eventKind string, payload []byte) error
}

// OnEventProcessed is called after a billing event has been applied.
type OnEventProcessed interface {
	Plugin
	OnEventProcessed(ctx context.Context, eventKind, tenantID string) error
}

// OnTierChanged is called when a tenant's stored tier changes value.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, tenantID string, oldTier, newTier tier.Tier) error
}

// ──────────────────────────────────────────────────
// Grant hooks
// ──────────────────────────────────────────────────

// OnGrantExpired is called when an expired promotional grant is
// reconciled back to the free tier.
type OnGrantExpired interface {
	Plugin
	OnGrantExpired(ctx context.Context, tenantID string) error
}

// ──────────────────────────────────────────────────
// Enforcement hooks
// ──────────────────────────────────────────────────

// OnEntitlementChecked is called after every limit check.
type OnEntitlementChecked interface {
	Plugin
	OnEntitlementChecked(ctx context.Context, result interface{}) error
}

// OnQuotaDenied is called when a limit check denies an action.
type OnQuotaDenied interface {
	Plugin
	OnQuotaDenied(ctx context.Context, tenantID, action string, used, limit int) error
}

// ──────────────────────────────────────────────────
// Downgrade hooks
// ──────────────────────────────────────────────────

// OnDowngradePlanned is called when a downgrade report is computed.
type OnDowngradePlanned interface {
	Plugin
	OnDowngradePlanned(ctx context.Context, tenantID string, report interface{}) error
}

// OnResourcePruned is called for each resource soft-deleted during a
// downgrade batch.
type OnResourcePruned interface {
	Plugin
	OnResourcePruned(ctx context.Context, tenantID, table, recordID string) error
}
