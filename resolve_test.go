package entitlements_test

import (
	"context"
	"testing"
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

func TestEffectiveTierPlain(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	got, err := e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatalf("EffectiveTier() error = %v", err)
	}
	if got != tier.Free {
		t.Errorf("EffectiveTier() = %q, want free", got)
	}

	if err := e.ConfirmUpgrade(ctx, "t1", tier.Premium); err != nil {
		t.Fatal(err)
	}
	got, err = e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != tier.Premium {
		t.Errorf("EffectiveTier() = %q, want premium", got)
	}
}

func TestPromoGrantResolution(t *testing.T) {
	e, st, clock := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if _, err := e.RedeemPromo(ctx, "t1", clock.Now().Add(30*24*time.Hour)); err != nil {
		t.Fatalf("RedeemPromo() error = %v", err)
	}
	wantTier(t, st, "t1", tier.Pro)

	got, err := e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != tier.Pro {
		t.Errorf("EffectiveTier() = %q, want pro while grant is live", got)
	}

	// Past expiry the stored field still says pro, but resolution says
	// free without writing anything.
	clock.Advance(31 * 24 * time.Hour)
	got, err = e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != tier.Free {
		t.Errorf("EffectiveTier() = %q, want free after expiry", got)
	}
	wantTier(t, st, "t1", tier.Pro)
}

func TestPaidProIgnoresGrantExpiry(t *testing.T) {
	e, _, clock := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if _, err := e.RedeemPromo(ctx, "t1", clock.Now().Add(24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	// A paid subscription supersedes the grant.
	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(48 * time.Hour)
	got, err := e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != tier.Pro {
		t.Errorf("EffectiveTier() = %q, want pro on paid subscription", got)
	}
}

func TestProWithoutGrantOrSubscriptionResolvesFree(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	// Inconsistent leftover: stored pro, no subscription, no grant.
	if err := st.SetTier(ctx, "t1", tier.Pro); err != nil {
		t.Fatal(err)
	}

	got, err := e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got != tier.Free {
		t.Errorf("EffectiveTier() = %q, want free", got)
	}
}

func TestRedeemPromoValidation(t *testing.T) {
	e, _, clock := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if _, err := e.RedeemPromo(ctx, "t1", clock.Now().Add(-time.Hour)); err == nil {
		t.Error("expected error for past expiry")
	}
	if _, err := e.RedeemPromo(ctx, "missing", clock.Now().Add(time.Hour)); !entitlements.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestRegisterTenantDuplicate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerTenant(t, e, "t1")

	if _, err := e.RegisterTenant(context.Background(), "t1"); err == nil {
		t.Error("expected duplicate profile error")
	}
}
