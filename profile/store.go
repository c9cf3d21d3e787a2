package profile

import (
	"context"

	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Store is the profile persistence contract. All tier mutations are
// single-row writes keyed by tenant id so that replayed billing events
// converge instead of compounding.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, tenantID string) (*Profile, error)
	GetBySubscriptionRef(ctx context.Context, subscriptionRef string) (*Profile, error)

	// SetTier updates only the stored tier.
	SetTier(ctx context.Context, tenantID string, t tier.Tier) error

	// SetBillingRefs writes the tier and both provider references as one
	// atomic update (the checkout-completed path).
	SetBillingRefs(ctx context.Context, tenantID string, t tier.Tier, customerRef, subscriptionRef string) error

	// ClearSubscription sets the tier and clears the subscription
	// reference in one update (the cancellation and deletion paths).
	ClearSubscription(ctx context.Context, tenantID string, t tier.Tier) error
}
