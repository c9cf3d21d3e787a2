// Package audithook bridges engine lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any concrete audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwinhagen-sys/spell-school-sub003/plugin"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnWebhookReceived  = (*Extension)(nil)
	_ plugin.OnEventProcessed   = (*Extension)(nil)
	_ plugin.OnTierChanged      = (*Extension)(nil)
	_ plugin.OnGrantExpired     = (*Extension)(nil)
	_ plugin.OnQuotaDenied      = (*Extension)(nil)
	_ plugin.OnDowngradePlanned = (*Extension)(nil)
	_ plugin.OnResourcePruned   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so this package stays backend-agnostic; callers inject
// the concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Billing event hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (e *Extension) OnWebhookReceived(ctx context.Context, eventKind string, payload []byte) error {
	return e.record(ctx, ActionWebhookReceived, SeverityInfo, OutcomeSuccess,
		ResourceWebhook, "", CategoryBilling, nil,
		"event_kind", eventKind,
		"payload_bytes", len(payload),
	)
}

// OnEventProcessed implements plugin.OnEventProcessed.
func (e *Extension) OnEventProcessed(ctx context.Context, eventKind, tenantID string) error {
	return e.record(ctx, ActionEventProcessed, SeverityInfo, OutcomeSuccess,
		ResourceProfile, tenantID, CategoryBilling, nil,
		"event_kind", eventKind,
		"tenant_id", tenantID,
	)
}

// OnTierChanged implements plugin.OnTierChanged.
func (e *Extension) OnTierChanged(ctx context.Context, tenantID string, oldTier, newTier tier.Tier) error {
	severity := SeverityInfo
	if !newTier.AtLeast(oldTier) {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionTierChanged, severity, OutcomeSuccess,
		ResourceProfile, tenantID, CategoryBilling, nil,
		"tenant_id", tenantID,
		"old_tier", string(oldTier),
		"new_tier", string(newTier),
	)
}

// ──────────────────────────────────────────────────
// Grant hooks
// ──────────────────────────────────────────────────

// OnGrantExpired implements plugin.OnGrantExpired.
func (e *Extension) OnGrantExpired(ctx context.Context, tenantID string) error {
	return e.record(ctx, ActionGrantExpired, SeverityInfo, OutcomeSuccess,
		ResourceGrant, tenantID, CategoryAccess, nil,
		"tenant_id", tenantID,
	)
}

// ──────────────────────────────────────────────────
// Enforcement hooks
// ──────────────────────────────────────────────────

// OnQuotaDenied implements plugin.OnQuotaDenied.
func (e *Extension) OnQuotaDenied(ctx context.Context, tenantID, action string, used, limit int) error {
	return e.record(ctx, ActionQuotaDenied, SeverityWarning, OutcomeFailure,
		ResourceEntitlement, tenantID, CategoryAccess, nil,
		"tenant_id", tenantID,
		"action", action,
		"used", used,
		"limit", limit,
	)
}

// ──────────────────────────────────────────────────
// Downgrade hooks
// ──────────────────────────────────────────────────

// OnDowngradePlanned implements plugin.OnDowngradePlanned.
func (e *Extension) OnDowngradePlanned(ctx context.Context, tenantID string, _ interface{}) error {
	return e.record(ctx, ActionDowngradePlanned, SeverityInfo, OutcomeSuccess,
		ResourceInventory, tenantID, CategoryRetention, nil,
		"tenant_id", tenantID,
	)
}

// OnResourcePruned implements plugin.OnResourcePruned.
func (e *Extension) OnResourcePruned(ctx context.Context, tenantID, table, recordID string) error {
	return e.record(ctx, ActionResourcePruned, SeverityWarning, OutcomeSuccess,
		ResourceInventory, recordID, CategoryRetention, nil,
		"tenant_id", tenantID,
		"table", table,
		"record_id", recordID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
