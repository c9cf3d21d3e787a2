package entitlements

import (
	"context"
	"fmt"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// ProcessEvent applies a billing lifecycle event to the affected tenant's
// profile. Every branch computes the new state from the event's own
// declared status, never from an assumed predecessor, so duplicate or
// out-of-order delivery cannot corrupt the stored tier. Replaying an
// identical event is a no-op beyond its first application.
func (e *Engine) ProcessEvent(ctx context.Context, ev billing.Event) error {
	switch ev := ev.(type) {
	case billing.CheckoutCompleted:
		return e.processCheckout(ctx, ev)
	case billing.SubscriptionUpdated:
		return e.processSubscriptionUpdated(ctx, ev)
	case billing.SubscriptionDeleted:
		return e.processSubscriptionDeleted(ctx, ev)
	case billing.InvoicePaid:
		return e.processInvoicePaid(ctx, ev)
	case billing.InvoicePaymentFailed:
		// Observational only. A single failed charge never revokes
		// access; a terminal status transition or deletion does.
		e.logger.Info("invoice payment failed",
			"tenant_id", ev.TenantID,
			"subscription_ref", ev.SubscriptionRef,
		)
		e.plugins.EmitEventProcessed(ctx, ev.Kind(), ev.TenantID)
		return nil
	case billing.UnknownEvent:
		// Forward compatibility: acknowledge and move on.
		e.logger.Debug("ignoring unknown billing event", "type", ev.Type)
		return nil
	default:
		return fmt.Errorf("%w: unhandled event %T", ErrInvalidInput, ev)
	}
}

// processCheckout handles a completed checkout session. Tenant and target
// tier must both come from session metadata; the tier is never guessed.
// Billing refs resolve through a fallback chain: session fields, then the
// subscription record, then the customer hanging off it.
func (e *Engine) processCheckout(ctx context.Context, ev billing.CheckoutCompleted) error {
	if ev.TenantID == "" {
		return ValidationError{Field: "tenant_id", Message: "checkout event missing tenant metadata"}
	}
	if !ev.TierHint.Valid() {
		return ValidationError{Field: "tier", Message: "checkout event missing target tier metadata"}
	}

	p, err := e.store.GetProfile(ctx, ev.TenantID)
	if err != nil {
		e.logger.Error("checkout for unknown tenant", "tenant_id", ev.TenantID)
		return err
	}

	customerRef, subscriptionRef, err := e.resolveRefs(ctx, ev)
	if err != nil {
		return err
	}

	if err := e.store.SetBillingRefs(ctx, ev.TenantID, ev.TierHint, customerRef, subscriptionRef); err != nil {
		return err
	}

	e.logger.Info("checkout completed",
		"tenant_id", ev.TenantID,
		"tier", ev.TierHint,
		"customer_ref", customerRef,
		"subscription_ref", subscriptionRef,
	)
	e.emitProcessed(ctx, ev.Kind(), p, ev.TierHint)
	return nil
}

// resolveRefs resolves the customer and subscription references for a
// checkout, calling out to the provider when the session carried only a
// subscription id.
func (e *Engine) resolveRefs(ctx context.Context, ev billing.CheckoutCompleted) (customerRef, subscriptionRef string, err error) {
	customerRef = ev.CustomerRef
	subscriptionRef = ev.SubscriptionRef

	if customerRef != "" || subscriptionRef == "" {
		return customerRef, subscriptionRef, nil
	}
	if e.provider == nil {
		return "", "", fmt.Errorf("%w: cannot resolve customer for subscription %s", ErrProviderNotConfigured, subscriptionRef)
	}

	sub, err := e.provider.RetrieveSubscription(ctx, subscriptionRef)
	if err != nil {
		return "", "", err
	}
	if sub.CustomerRef != "" {
		return sub.CustomerRef, subscriptionRef, nil
	}

	// Last resort: the subscription itself may reference the customer
	// only through metadata on older provider API versions.
	if ref := sub.Metadata["customer_ref"]; ref != "" {
		c, err := e.provider.RetrieveCustomer(ctx, ref)
		if err != nil {
			return "", "", err
		}
		return c.ID, subscriptionRef, nil
	}
	return "", subscriptionRef, nil
}

func (e *Engine) processSubscriptionUpdated(ctx context.Context, ev billing.SubscriptionUpdated) error {
	p, err := e.resolveTenant(ctx, ev.TenantID, ev.SubscriptionRef)
	if err != nil {
		return err
	}

	switch {
	case ev.Status == billing.StatusCanceled ||
		ev.Status == billing.StatusPastDue ||
		ev.Status == billing.StatusUnpaid:
		// Fail safe. An ambiguous payment state never leaves a tenant
		// over-entitled.
		if err := e.store.ClearSubscription(ctx, p.TenantID, tier.Free); err != nil {
			return err
		}
		e.logger.Info("subscription revoked",
			"tenant_id", p.TenantID,
			"status", ev.Status,
		)
		e.emitProcessed(ctx, ev.Kind(), p, tier.Free)
		return nil

	case ev.Status == billing.StatusActive && ev.CancelAtPeriodEnd:
		// Grace period: entitled until the period ends. The later
		// deletion event revokes access.
		e.logger.Info("subscription pending cancellation",
			"tenant_id", p.TenantID,
			"subscription_ref", ev.SubscriptionRef,
		)
		e.plugins.EmitEventProcessed(ctx, ev.Kind(), p.TenantID)
		return nil

	case ev.Status == billing.StatusActive && ev.TierHint.Valid():
		if ev.SubscriptionRef == "" || ev.SubscriptionRef != p.BillingSubscriptionRef {
			// The event asserts a tier for a subscription the profile no
			// longer tracks. A terminal event already cleared or replaced
			// the ref; applying a late replay would re-grant revoked
			// access.
			e.logger.Warn("ignoring tier assertion for stale subscription",
				"tenant_id", p.TenantID,
				"event_subscription_ref", ev.SubscriptionRef,
				"stored_subscription_ref", p.BillingSubscriptionRef,
			)
			e.plugins.EmitEventProcessed(ctx, ev.Kind(), p.TenantID)
			return nil
		}
		if err := e.store.SetTier(ctx, p.TenantID, ev.TierHint); err != nil {
			return err
		}
		e.logger.Info("subscription tier asserted",
			"tenant_id", p.TenantID,
			"tier", ev.TierHint,
		)
		e.emitProcessed(ctx, ev.Kind(), p, ev.TierHint)
		return nil
	}

	// Active without a usable tier hint, or a transitional status such
	// as incomplete. Nothing safe to assert.
	e.plugins.EmitEventProcessed(ctx, ev.Kind(), p.TenantID)
	return nil
}

func (e *Engine) processSubscriptionDeleted(ctx context.Context, ev billing.SubscriptionDeleted) error {
	p, err := e.resolveTenant(ctx, ev.TenantID, ev.SubscriptionRef)
	if err != nil {
		if IsNotFound(err) {
			// The subscription may already be cleared from the profile
			// by an earlier terminal event. Deletion of an unknown
			// subscription is then a duplicate, not a failure.
			e.logger.Info("subscription deleted for unknown reference",
				"subscription_ref", ev.SubscriptionRef,
			)
			return nil
		}
		return err
	}

	if err := e.store.ClearSubscription(ctx, p.TenantID, tier.Free); err != nil {
		return err
	}
	e.logger.Info("subscription ended",
		"tenant_id", p.TenantID,
		"subscription_ref", ev.SubscriptionRef,
	)
	e.emitProcessed(ctx, ev.Kind(), p, tier.Free)
	return nil
}

// processInvoicePaid re-derives the tier for the renewed subscription and
// re-asserts it. This is the self-healing path: if an earlier lifecycle
// event was lost or applied out of order, the next renewal repairs the
// stored tier.
func (e *Engine) processInvoicePaid(ctx context.Context, ev billing.InvoicePaid) error {
	p, err := e.resolveTenant(ctx, ev.TenantID, ev.SubscriptionRef)
	if err != nil {
		return err
	}

	t, ok := tier.Derive(
		tier.FromMetadata(string(ev.TierHint)),
		tier.FromPrice(e.prices, ev.PriceID),
	)
	if !ok {
		e.logger.Warn("invoice paid but tier not derivable",
			"tenant_id", p.TenantID,
			"price_id", ev.PriceID,
		)
		e.plugins.EmitEventProcessed(ctx, ev.Kind(), p.TenantID)
		return nil
	}

	switch {
	case p.BillingSubscriptionRef == "":
		// First event seen for this subscription, usually a lost checkout
		// notification. Adopt the paying subscription's ref along with the
		// tier so the profile does not read as a promotional grant and
		// later lifecycle events have a ref to match against.
		if err := e.store.SetBillingRefs(ctx, p.TenantID, t, p.BillingCustomerRef, ev.SubscriptionRef); err != nil {
			return err
		}
	case ev.SubscriptionRef != p.BillingSubscriptionRef:
		// A renewal charge for a subscription the profile no longer
		// tracks. Late replay after replacement or revocation.
		e.logger.Warn("ignoring renewal for stale subscription",
			"tenant_id", p.TenantID,
			"event_subscription_ref", ev.SubscriptionRef,
			"stored_subscription_ref", p.BillingSubscriptionRef,
		)
		e.plugins.EmitEventProcessed(ctx, ev.Kind(), p.TenantID)
		return nil
	default:
		if err := e.store.SetTier(ctx, p.TenantID, t); err != nil {
			return err
		}
	}
	e.logger.Info("tier re-asserted on renewal",
		"tenant_id", p.TenantID,
		"tier", t,
	)
	e.emitProcessed(ctx, ev.Kind(), p, t)
	return nil
}

// resolveTenant locates the profile an event refers to. Metadata tenant
// id wins; otherwise the subscription reference is matched against stored
// profiles, then against the provider's subscription metadata.
func (e *Engine) resolveTenant(ctx context.Context, tenantID, subscriptionRef string) (*profile.Profile, error) {
	if tenantID != "" {
		return e.store.GetProfile(ctx, tenantID)
	}
	if subscriptionRef == "" {
		return nil, fmt.Errorf("%w: event carries neither tenant nor subscription reference", ErrUnknownTenant)
	}

	p, err := e.store.GetProfileBySubscriptionRef(ctx, subscriptionRef)
	if err == nil {
		return p, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	if e.provider != nil {
		sub, perr := e.provider.RetrieveSubscription(ctx, subscriptionRef)
		if perr == nil {
			if tid := sub.Metadata["tenant_id"]; tid != "" {
				return e.store.GetProfile(ctx, tid)
			}
		}
	}
	return nil, fmt.Errorf("%w: subscription %s", ErrProfileNotFound, subscriptionRef)
}

// emitProcessed fires the processed hook and, when the stored tier
// actually changed value, the tier changed hook.
func (e *Engine) emitProcessed(ctx context.Context, kind string, before *profile.Profile, newTier tier.Tier) {
	e.plugins.EmitEventProcessed(ctx, kind, before.TenantID)
	if before.StoredTier != newTier {
		e.plugins.EmitTierChanged(ctx, before.TenantID, before.StoredTier, newTier)
	}
}
