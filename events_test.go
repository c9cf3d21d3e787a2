package entitlements_test

import (
	"context"
	"testing"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

func TestCheckoutCompleted(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID:        "t1",
		TierHint:        tier.Premium,
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	p := storedProfile(t, st, "t1")
	if p.StoredTier != tier.Premium {
		t.Errorf("StoredTier = %q, want premium", p.StoredTier)
	}
	if p.BillingCustomerRef != "cus_1" || p.BillingSubscriptionRef != "sub_1" {
		t.Errorf("refs = %q, %q", p.BillingCustomerRef, p.BillingSubscriptionRef)
	}
}

func TestCheckoutResolvesCustomerFromProvider(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.AddSubscription(&billing.ProviderSubscription{
		ID:          "sub_1",
		CustomerRef: "cus_77",
		Status:      billing.StatusActive,
	})
	e, st, _ := newTestEngine(t, entitlements.WithProvider(provider))
	registerTenant(t, e, "t1")

	err := e.ProcessEvent(context.Background(), billing.CheckoutCompleted{
		TenantID:        "t1",
		TierHint:        tier.Premium,
		SubscriptionRef: "sub_1",
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	p := storedProfile(t, st, "t1")
	if p.BillingCustomerRef != "cus_77" {
		t.Errorf("BillingCustomerRef = %q, want cus_77", p.BillingCustomerRef)
	}
	if p.StoredTier != tier.Premium {
		t.Errorf("StoredTier = %q, want premium", p.StoredTier)
	}
}

func TestCheckoutMissingMetadataRejected(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	tests := []struct {
		name string
		ev   billing.CheckoutCompleted
	}{
		{"missing tenant", billing.CheckoutCompleted{TierHint: tier.Pro, CustomerRef: "cus_1"}},
		{"missing tier", billing.CheckoutCompleted{TenantID: "t1", CustomerRef: "cus_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ProcessEvent(ctx, tt.ev)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !entitlements.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
			wantTier(t, st, "t1", tier.Free)
		})
	}
}

func TestSubscriptionRevokedStatuses(t *testing.T) {
	for _, status := range []string{billing.StatusCanceled, billing.StatusPastDue, billing.StatusUnpaid} {
		t.Run(status, func(t *testing.T) {
			e, st, _ := newTestEngine(t)
			registerTenant(t, e, "t1")
			ctx := context.Background()

			if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
				TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
			}); err != nil {
				t.Fatal(err)
			}

			err := e.ProcessEvent(ctx, billing.SubscriptionUpdated{
				SubscriptionRef: "sub_1",
				Status:          status,
			})
			if err != nil {
				t.Fatalf("ProcessEvent() error = %v", err)
			}

			p := storedProfile(t, st, "t1")
			if p.StoredTier != tier.Free {
				t.Errorf("StoredTier = %q, want free", p.StoredTier)
			}
			if p.BillingSubscriptionRef != "" {
				t.Errorf("BillingSubscriptionRef = %q, want cleared", p.BillingSubscriptionRef)
			}
		})
	}
}

func TestGracePeriod(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}

	// Cancellation scheduled for period end: entitlement survives.
	err := e.ProcessEvent(ctx, billing.SubscriptionUpdated{
		SubscriptionRef:   "sub_1",
		Status:            billing.StatusActive,
		CancelAtPeriodEnd: true,
	})
	if err != nil {
		t.Fatalf("ProcessEvent(updated) error = %v", err)
	}
	wantTier(t, st, "t1", tier.Pro)

	// The deletion at period end is the authoritative revocation.
	err = e.ProcessEvent(ctx, billing.SubscriptionDeleted{SubscriptionRef: "sub_1"})
	if err != nil {
		t.Fatalf("ProcessEvent(deleted) error = %v", err)
	}
	wantTier(t, st, "t1", tier.Free)
}

func TestActiveRenewalAssertsTier(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Premium, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}

	err := e.ProcessEvent(ctx, billing.SubscriptionUpdated{
		SubscriptionRef: "sub_1",
		Status:          billing.StatusActive,
		TierHint:        tier.Pro,
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	wantTier(t, st, "t1", tier.Pro)
}

func TestIdempotence(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	events := []billing.Event{
		billing.CheckoutCompleted{TenantID: "t1", TierHint: tier.Premium, CustomerRef: "cus_1", SubscriptionRef: "sub_1"},
		billing.SubscriptionUpdated{SubscriptionRef: "sub_1", Status: billing.StatusActive, TierHint: tier.Premium},
		billing.SubscriptionDeleted{SubscriptionRef: "sub_1"},
	}

	for _, ev := range events {
		if err := e.ProcessEvent(ctx, ev); err != nil {
			t.Fatalf("first apply of %s: %v", ev.Kind(), err)
		}
		first := *storedProfile(t, st, "t1")

		if err := e.ProcessEvent(ctx, ev); err != nil {
			t.Fatalf("second apply of %s: %v", ev.Kind(), err)
		}
		second := *storedProfile(t, st, "t1")

		if first.StoredTier != second.StoredTier ||
			first.BillingCustomerRef != second.BillingCustomerRef ||
			first.BillingSubscriptionRef != second.BillingSubscriptionRef {
			t.Errorf("%s not idempotent: %+v vs %+v", ev.Kind(), first, second)
		}
	}
}

func TestMonotonicSafety(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.ProcessEvent(ctx, billing.SubscriptionDeleted{SubscriptionRef: "sub_1"}); err != nil {
		t.Fatal(err)
	}
	wantTier(t, st, "t1", tier.Free)

	// A stale update for the dead subscription arrives late. The ref no
	// longer matches any profile, so nothing regains pro.
	err := e.ProcessEvent(ctx, billing.SubscriptionUpdated{
		SubscriptionRef: "sub_1",
		Status:          billing.StatusActive,
		TierHint:        tier.Pro,
	})
	if err == nil || !entitlements.IsNotFound(err) {
		t.Fatalf("stale update error = %v, want not found", err)
	}
	wantTier(t, st, "t1", tier.Free)

	// The same replay carrying tenant metadata resolves the profile, but
	// the dead subscription no longer matches the stored ref. Acknowledged
	// and dropped, never re-applied.
	err = e.ProcessEvent(ctx, billing.SubscriptionUpdated{
		TenantID:        "t1",
		SubscriptionRef: "sub_1",
		Status:          billing.StatusActive,
		TierHint:        tier.Pro,
	})
	if err != nil {
		t.Fatalf("stale update with tenant metadata error = %v", err)
	}
	wantTier(t, st, "t1", tier.Free)

	// Only a checkout for a new subscription re-grants.
	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_2",
	}); err != nil {
		t.Fatal(err)
	}
	wantTier(t, st, "t1", tier.Pro)
}

func TestInvoicePaidSelfHeals(t *testing.T) {
	e, st, _ := newTestEngine(t, entitlements.WithPriceTable(tier.PriceTable{
		"price_premium": tier.Premium,
	}))
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Premium, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}

	// Simulate a lost downgrade-to-free bug: force the profile off tier.
	if err := st.SetTier(ctx, "t1", tier.Free); err != nil {
		t.Fatal(err)
	}

	t.Run("metadata wins", func(t *testing.T) {
		err := e.ProcessEvent(ctx, billing.InvoicePaid{
			SubscriptionRef: "sub_1",
			TierHint:        tier.Premium,
		})
		if err != nil {
			t.Fatalf("ProcessEvent() error = %v", err)
		}
		wantTier(t, st, "t1", tier.Premium)
	})

	t.Run("price table fallback", func(t *testing.T) {
		if err := st.SetTier(ctx, "t1", tier.Free); err != nil {
			t.Fatal(err)
		}
		err := e.ProcessEvent(ctx, billing.InvoicePaid{
			SubscriptionRef: "sub_1",
			PriceID:         "price_premium",
		})
		if err != nil {
			t.Fatalf("ProcessEvent() error = %v", err)
		}
		wantTier(t, st, "t1", tier.Premium)
	})

	t.Run("underivable is a no-op", func(t *testing.T) {
		if err := st.SetTier(ctx, "t1", tier.Free); err != nil {
			t.Fatal(err)
		}
		err := e.ProcessEvent(ctx, billing.InvoicePaid{
			SubscriptionRef: "sub_1",
			PriceID:         "price_unknown",
		})
		if err != nil {
			t.Fatalf("ProcessEvent() error = %v", err)
		}
		wantTier(t, st, "t1", tier.Free)
	})
}

func TestInvoicePaidAdoptsSubscriptionRef(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	// The checkout notification never arrived; the renewal charge is the
	// first event seen for this subscription.
	err := e.ProcessEvent(ctx, billing.InvoicePaid{
		TenantID:        "t1",
		SubscriptionRef: "sub_1",
		TierHint:        tier.Pro,
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	p := storedProfile(t, st, "t1")
	if p.StoredTier != tier.Pro {
		t.Errorf("StoredTier = %q, want pro", p.StoredTier)
	}
	if p.BillingSubscriptionRef != "sub_1" {
		t.Errorf("BillingSubscriptionRef = %q, want sub_1", p.BillingSubscriptionRef)
	}

	// With the ref adopted the profile reads as paid, not as a
	// promotional grant, so the effective tier holds without any grant
	// record backing it.
	got, err := e.EffectiveTier(ctx, "t1")
	if err != nil {
		t.Fatalf("EffectiveTier() error = %v", err)
	}
	if got != tier.Pro {
		t.Errorf("EffectiveTier() = %q, want pro", got)
	}
}

func TestInvoicePaidForReplacedSubscriptionIgnored(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Premium, CustomerRef: "cus_1", SubscriptionRef: "sub_2",
	}); err != nil {
		t.Fatal(err)
	}

	// A late renewal charge for a subscription the tenant replaced.
	err := e.ProcessEvent(ctx, billing.InvoicePaid{
		TenantID:        "t1",
		SubscriptionRef: "sub_1",
		TierHint:        tier.Pro,
	})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}

	p := storedProfile(t, st, "t1")
	if p.StoredTier != tier.Premium {
		t.Errorf("StoredTier = %q, want premium untouched", p.StoredTier)
	}
	if p.BillingSubscriptionRef != "sub_2" {
		t.Errorf("BillingSubscriptionRef = %q, want sub_2", p.BillingSubscriptionRef)
	}
}

func TestInvoicePaymentFailedIsObservational(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	ctx := context.Background()

	if err := e.ProcessEvent(ctx, billing.CheckoutCompleted{
		TenantID: "t1", TierHint: tier.Pro, CustomerRef: "cus_1", SubscriptionRef: "sub_1",
	}); err != nil {
		t.Fatal(err)
	}

	err := e.ProcessEvent(ctx, billing.InvoicePaymentFailed{SubscriptionRef: "sub_1", TenantID: "t1"})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	wantTier(t, st, "t1", tier.Pro)
}

func TestUnknownEventIsNoop(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")

	err := e.ProcessEvent(context.Background(), billing.UnknownEvent{Type: "charge.refunded"})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
	wantTier(t, st, "t1", tier.Free)
}

func TestDeletedSubscriptionUnknownRefIsDuplicate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerTenant(t, e, "t1")

	// No profile references sub_9: treat as an already-applied duplicate.
	err := e.ProcessEvent(context.Background(), billing.SubscriptionDeleted{SubscriptionRef: "sub_9"})
	if err != nil {
		t.Fatalf("ProcessEvent() error = %v", err)
	}
}
