package tier

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"free", Free, false},
		{"premium", Premium, false},
		{"pro", Pro, false},
		{"", "", true},
		{"enterprise", "", true},
		{"PRO", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrdering(t *testing.T) {
	if !Pro.AtLeast(Premium) || !Premium.AtLeast(Free) || !Pro.AtLeast(Free) {
		t.Error("tier ordering broken")
	}
	if Free.AtLeast(Premium) || Premium.AtLeast(Pro) {
		t.Error("lower tiers should not satisfy higher ones")
	}
	if !Free.AtLeast(Free) {
		t.Error("a tier satisfies itself")
	}
}

func TestFreeTierAggregateStudentCap(t *testing.T) {
	free := LimitsFor(Free)

	// The free tier caps students across all classes, not per class.
	if free.MaxTotalStudents == Unlimited {
		t.Error("free tier must carry an aggregate student cap")
	}
	if free.MaxStudentsPerClass != Unlimited {
		t.Error("free tier must not carry a per-class student cap")
	}

	for _, paid := range []Tier{Premium, Pro} {
		l := LimitsFor(paid)
		if l.MaxTotalStudents != Unlimited {
			t.Errorf("%s tier must not carry an aggregate student cap", paid)
		}
		if l.MaxStudentsPerClass == Unlimited {
			t.Errorf("%s tier must carry a per-class student cap", paid)
		}
	}
}

func TestLimitsForUnknownFallsBackToFree(t *testing.T) {
	if LimitsFor(Tier("bogus")) != LimitsFor(Free) {
		t.Error("unknown tier should resolve to free limits")
	}
}

func TestAllows(t *testing.T) {
	if !Allows(Unlimited, 1_000_000) {
		t.Error("unlimited should always allow")
	}
	if !Allows(3, 2) {
		t.Error("under the limit should allow")
	}
	if Allows(3, 3) {
		t.Error("at the limit should deny")
	}
}

func TestDeriveChainOrder(t *testing.T) {
	prices := PriceTable{"price_premium_monthly": Premium}

	// Metadata wins over the price table.
	got, ok := Derive(
		FromMetadata("pro"),
		FromPrice(prices, "price_premium_monthly"),
	)
	if !ok || got != Pro {
		t.Errorf("Derive = %q, %v; want pro via metadata", got, ok)
	}

	// Price table is consulted when metadata is absent or invalid.
	got, ok = Derive(
		FromMetadata("gold"),
		FromPrice(prices, "price_premium_monthly"),
	)
	if !ok || got != Premium {
		t.Errorf("Derive = %q, %v; want premium via price table", got, ok)
	}

	// No source succeeds.
	if _, ok := Derive(FromMetadata(""), FromPrice(prices, "price_unknown")); ok {
		t.Error("Derive should fail when no source matches")
	}
}
