package audithook

import (
	"context"
	"testing"

	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

func collect(events *[]*AuditEvent) Recorder {
	return RecorderFunc(func(_ context.Context, e *AuditEvent) error {
		*events = append(*events, e)
		return nil
	})
}

func TestTierChangeSeverity(t *testing.T) {
	var events []*AuditEvent
	ext := New(collect(&events))
	ctx := context.Background()

	if err := ext.OnTierChanged(ctx, "t1", tier.Free, tier.Pro); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnTierChanged(ctx, "t1", tier.Pro, tier.Free); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Severity != SeverityInfo {
		t.Errorf("upgrade severity = %q, want info", events[0].Severity)
	}
	if events[1].Severity != SeverityWarning {
		t.Errorf("downgrade severity = %q, want warning", events[1].Severity)
	}
	if events[1].Metadata["old_tier"] != "pro" || events[1].Metadata["new_tier"] != "free" {
		t.Errorf("metadata = %v", events[1].Metadata)
	}
}

func TestQuotaDenied(t *testing.T) {
	var events []*AuditEvent
	ext := New(collect(&events))

	if err := ext.OnQuotaDenied(context.Background(), "t1", "create_class", 1, 1); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Action != ActionQuotaDenied || e.Outcome != OutcomeFailure {
		t.Errorf("event = %+v", e)
	}
	if e.Metadata["used"] != 1 || e.Metadata["limit"] != 1 {
		t.Errorf("metadata = %v", e.Metadata)
	}
}

func TestActionFiltering(t *testing.T) {
	var events []*AuditEvent
	ext := New(collect(&events), WithDisabledActions(ActionEventProcessed))
	ctx := context.Background()

	if err := ext.OnEventProcessed(ctx, "invoice.paid", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := ext.OnResourcePruned(ctx, "t1", "classes", "class_x"); err != nil {
		t.Fatal(err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 (processed filtered out)", len(events))
	}
	if events[0].Action != ActionResourcePruned {
		t.Errorf("action = %q", events[0].Action)
	}
}

func TestRecorderFailureSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return context.DeadlineExceeded
	}))

	// Audit failures are logged, never propagated into the pipeline.
	if err := ext.OnGrantExpired(context.Background(), "t1"); err != nil {
		t.Errorf("OnGrantExpired() error = %v, want nil", err)
	}
}
