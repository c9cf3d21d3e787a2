package grant

import (
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// Grant is a time-boxed promotional entitlement ("test pilot") at the top
// tier without an underlying paid subscription. Grants are immutable once
// created; a paid subscription supersedes the grant, it never edits it.
type Grant struct {
	types.Entity
	ID        id.GrantID `json:"id"`
	TenantID  string     `json:"tenant_id"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Tier returns the tier a grant confers. All grants are pro.
func (g *Grant) Tier() tier.Tier { return tier.Pro }

// Expired reports whether the grant has lapsed at the given instant.
// Expiry is inclusive: a grant expiring exactly now is expired.
func (g *Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
