package entitlements_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/store/memory"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		eng := entitlements.New(store,
			entitlements.WithLogger(slog.Default()),
			entitlements.WithPriceTable(tier.PriceTable{
				"price_premium_monthly": tier.Premium,
				"price_pro_monthly":     tier.Pro,
			}),
			entitlements.WithReconcileInterval(time.Hour),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Register a tenant and check its effective tier
		if _, err := eng.RegisterTenant(ctx, "school-123"); err != nil {
			t.Fatal(err)
		}
		got, err := eng.EffectiveTier(ctx, "school-123")
		if err != nil {
			t.Fatal(err)
		}
		if got != tier.Free {
			t.Fatalf("new tenant tier = %q, want free", got)
		}
	})

	// Test entitlement check example from Core Concepts
	t.Run("CanPerformExample", func(t *testing.T) {
		store := memory.New()
		eng := entitlements.New(store)

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		if _, err := eng.RegisterTenant(ctx, "school-123"); err != nil {
			t.Fatal(err)
		}

		d, err := eng.CanPerform(ctx, "school-123", entitlements.Action{
			Kind: entitlements.ActionCreateClass,
		})
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("first class should be allowed: %s", d.Reason)
		}
	})
}
