package entitlements

import (
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// Re-export common types for convenience so users don't have to import
// the leaf packages.

// Tier is re-exported from the tier package.
type Tier = tier.Tier

// Limits is re-exported from the tier package.
type Limits = tier.Limits

// PriceTable is re-exported from the tier package.
type PriceTable = tier.PriceTable

// Entity is re-exported from the types package.
type Entity = types.Entity

// Tier constants.
const (
	TierFree    = tier.Free
	TierPremium = tier.Premium
	TierPro     = tier.Pro
	Unlimited   = tier.Unlimited
)

// Re-export tier helpers.
var (
	LimitsFor = tier.LimitsFor
	ParseTier = tier.Parse
)

// Re-export Entity constructor.
var NewEntity = types.NewEntity
