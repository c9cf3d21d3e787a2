// Package observability provides a metrics extension for the entitlement
// engine that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/cwinhagen-sys/spell-school-sub003/plugin"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnWebhookReceived    = (*MetricsExtension)(nil)
	_ plugin.OnEventProcessed     = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged        = (*MetricsExtension)(nil)
	_ plugin.OnGrantExpired       = (*MetricsExtension)(nil)
	_ plugin.OnEntitlementChecked = (*MetricsExtension)(nil)
	_ plugin.OnQuotaDenied        = (*MetricsExtension)(nil)
	_ plugin.OnDowngradePlanned   = (*MetricsExtension)(nil)
	_ plugin.OnResourcePruned     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track entitlement metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Billing event metrics
	WebhookReceived Counter
	EventProcessed  Counter

	// Tier metrics
	TierUpgraded   Counter
	TierDowngraded Counter
	GrantExpired   Counter

	// Entitlement metrics
	EntitlementChecks Counter
	EntitlementDenied Counter

	// Downgrade metrics
	DowngradePlanned Counter
	ResourcePruned   Counter
	PrunedBatchSize  Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		WebhookReceived: factory.Counter("entitlements.webhook.received"),
		EventProcessed:  factory.Counter("entitlements.event.processed"),

		TierUpgraded:   factory.Counter("entitlements.tier.upgraded"),
		TierDowngraded: factory.Counter("entitlements.tier.downgraded"),
		GrantExpired:   factory.Counter("entitlements.grant.expired"),

		EntitlementChecks: factory.Counter("entitlements.checks"),
		EntitlementDenied: factory.Counter("entitlements.denied"),

		DowngradePlanned: factory.Counter("entitlements.downgrade.planned"),
		ResourcePruned:   factory.Counter("entitlements.resource.pruned"),
		PrunedBatchSize:  factory.Histogram("entitlements.pruned.batch.size"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (m *MetricsExtension) OnWebhookReceived(_ context.Context, _ string, _ []byte) error {
	m.WebhookReceived.Inc()
	return nil
}

// OnEventProcessed implements plugin.OnEventProcessed.
func (m *MetricsExtension) OnEventProcessed(_ context.Context, _, _ string) error {
	m.EventProcessed.Inc()
	return nil
}

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, _ string, oldTier, newTier tier.Tier) error {
	if newTier.AtLeast(oldTier) {
		m.TierUpgraded.Inc()
	} else {
		m.TierDowngraded.Inc()
	}
	return nil
}

// OnGrantExpired implements plugin.OnGrantExpired.
func (m *MetricsExtension) OnGrantExpired(_ context.Context, _ string) error {
	m.GrantExpired.Inc()
	return nil
}

// OnEntitlementChecked implements plugin.OnEntitlementChecked.
func (m *MetricsExtension) OnEntitlementChecked(_ context.Context, _ interface{}) error {
	m.EntitlementChecks.Inc()
	return nil
}

// OnQuotaDenied implements plugin.OnQuotaDenied.
func (m *MetricsExtension) OnQuotaDenied(_ context.Context, _, _ string, _, _ int) error {
	m.EntitlementDenied.Inc()
	return nil
}

// OnDowngradePlanned implements plugin.OnDowngradePlanned.
func (m *MetricsExtension) OnDowngradePlanned(_ context.Context, _ string, _ interface{}) error {
	m.DowngradePlanned.Inc()
	return nil
}

// OnResourcePruned implements plugin.OnResourcePruned.
func (m *MetricsExtension) OnResourcePruned(_ context.Context, _, _, _ string) error {
	m.ResourcePruned.Inc()
	return nil
}
