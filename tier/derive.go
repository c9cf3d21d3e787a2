package tier

// PriceTable maps a billing provider price id to the tier it purchases.
// Entries must match the price objects configured in the provider dashboard.
type PriceTable map[string]Tier

// Lookup returns the tier for a price id.
func (pt PriceTable) Lookup(priceID string) (Tier, bool) {
	t, ok := pt[priceID]
	return t, ok
}

// Source is one strategy for deriving a tier from billing event data.
// Sources are tried in order; the first success wins.
type Source func() (Tier, bool)

// FromMetadata derives a tier from a raw metadata value. It only succeeds
// for members of the closed enum, so a corrupted hint never grants access.
func FromMetadata(raw string) Source {
	return func() (Tier, bool) {
		if raw == "" {
			return "", false
		}
		t, err := Parse(raw)
		if err != nil {
			return "", false
		}
		return t, true
	}
}

// FromPrice derives a tier from the configured price table.
func FromPrice(table PriceTable, priceID string) Source {
	return func() (Tier, bool) {
		if priceID == "" {
			return "", false
		}
		return table.Lookup(priceID)
	}
}

// Derive runs the sources in order and returns the first tier produced.
func Derive(sources ...Source) (Tier, bool) {
	for _, src := range sources {
		if t, ok := src(); ok {
			return t, true
		}
	}
	return "", false
}
