package entitlements

import (
	"context"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// EffectiveTier resolves the entitlement a tenant actually holds right
// now. A pro profile without a subscription reference is running on a
// promotional grant, so the grant's expiry decides; every other profile
// resolves to its stored tier unchanged.
//
// The read path never writes. Flipping an expired grant's stored tier
// back to free is the reconciliation worker's job, not a side effect of a
// permission check.
func (e *Engine) EffectiveTier(ctx context.Context, tenantID string) (tier.Tier, error) {
	p, err := e.store.GetProfile(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if !p.OnPromoGrant() {
		return p.StoredTier, nil
	}

	g, err := e.store.GetCurrentGrant(ctx, tenantID)
	if err != nil {
		if IsNotFound(err) {
			// Stored pro with no subscription and no grant is an
			// inconsistent leftover. Resolve to free, never guess up.
			return tier.Free, nil
		}
		return "", err
	}
	if g.Expired(e.now()) {
		return tier.Free, nil
	}
	return tier.Pro, nil
}

// RegisterTenant creates a profile at the free tier. Called once at
// signup.
func (e *Engine) RegisterTenant(ctx context.Context, tenantID string) (*profile.Profile, error) {
	if tenantID == "" {
		return nil, ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}
	p := profile.New(tenantID)
	if err := e.store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	e.logger.Info("tenant registered", "tenant_id", tenantID)
	return p, nil
}

// RedeemPromo creates a promotional pro grant for the tenant lasting
// until the given instant and raises the stored tier to pro. The grant is
// immutable once created; a later paid subscription supersedes it by
// writing billing refs over the profile, never by editing the grant.
func (e *Engine) RedeemPromo(ctx context.Context, tenantID string, until time.Time) (*grant.Grant, error) {
	now := e.now()
	if !until.After(now) {
		return nil, ValidationError{Field: "until", Message: "expiry must be in the future"}
	}
	p, err := e.store.GetProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	g := &grant.Grant{
		Entity:    types.NewEntity(),
		ID:        id.NewGrantID(),
		TenantID:  tenantID,
		GrantedAt: now,
		ExpiresAt: until,
	}
	if err := e.store.CreateGrant(ctx, g); err != nil {
		return nil, err
	}
	if err := e.store.SetTier(ctx, tenantID, tier.Pro); err != nil {
		return nil, err
	}

	e.logger.Info("promo grant redeemed",
		"tenant_id", tenantID,
		"expires_at", until,
	)
	if p.StoredTier != tier.Pro {
		e.plugins.EmitTierChanged(ctx, tenantID, p.StoredTier, tier.Pro)
	}
	return g, nil
}

// ConfirmUpgrade sets the stored tier directly. This is the explicit
// upgrade confirmation path used by operator tooling; billing-driven
// changes go through ProcessEvent instead.
func (e *Engine) ConfirmUpgrade(ctx context.Context, tenantID string, t tier.Tier) error {
	if !t.Valid() {
		return ValidationError{Field: "tier", Message: "unknown tier " + string(t)}
	}
	p, err := e.store.GetProfile(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := e.store.SetTier(ctx, tenantID, t); err != nil {
		return err
	}

	e.logger.Info("tier upgrade confirmed", "tenant_id", tenantID, "tier", t)
	if p.StoredTier != t {
		e.plugins.EmitTierChanged(ctx, tenantID, p.StoredTier, t)
	}
	return nil
}
