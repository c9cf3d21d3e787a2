package profile

import (
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// Profile holds a tenant's stored entitlement state. The stored tier is
// what billing events last asserted; the effective tier a caller should
// act on is computed by the engine, because a promo grant can expire
// without the stored field changing.
type Profile struct {
	types.Entity
	TenantID   string    `json:"tenant_id"`
	StoredTier tier.Tier `json:"stored_tier"`

	// Opaque references into the billing provider. An empty string means
	// unset. A pro profile without a subscription ref is running on a
	// promo grant, not a paid subscription.
	BillingCustomerRef     string `json:"billing_customer_ref,omitempty"`
	BillingSubscriptionRef string `json:"billing_subscription_ref,omitempty"`
}

// New creates a Profile at the default free tier.
func New(tenantID string) *Profile {
	return &Profile{
		Entity:     types.NewEntity(),
		TenantID:   tenantID,
		StoredTier: tier.Free,
	}
}

// OnPromoGrant reports whether the profile's pro tier comes from a promo
// grant rather than a paid subscription.
func (p *Profile) OnPromoGrant() bool {
	return p.StoredTier == tier.Pro && p.BillingSubscriptionRef == ""
}
