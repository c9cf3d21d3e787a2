// Package tier defines the closed entitlement tier enum and the per-tier
// resource limit table for the platform.
package tier

import "fmt"

// Tier is a tenant's entitlement level.
type Tier string

const (
	Free    Tier = "free"
	Premium Tier = "premium"
	Pro     Tier = "pro"
)

// Unlimited marks a limit that is not enforced.
const Unlimited = -1

// Valid reports whether t is one of the closed tier values.
func (t Tier) Valid() bool {
	switch t {
	case Free, Premium, Pro:
		return true
	}
	return false
}

// AtLeast reports whether t grants at least the entitlement of other.
func (t Tier) AtLeast(other Tier) bool {
	return rank(t) >= rank(other)
}

func rank(t Tier) int {
	switch t {
	case Pro:
		return 2
	case Premium:
		return 1
	default:
		return 0
	}
}

// Parse validates a raw tier string against the closed enum.
func Parse(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("tier: unknown tier %q", s)
	}
	return t, nil
}

// Limits is the resource limit table for one tier. Unlimited (-1) marks a
// limit that is not enforced.
//
// The free tier caps students in aggregate across all of a tenant's classes,
// deduplicated by student id, while the paid tiers cap students per class.
// This asymmetry reflects the free tier's single-class assumption and is
// load-bearing: enforcement and downgrade planning both depend on it.
type Limits struct {
	MaxClasses          int `json:"max_classes"`
	MaxStudentsPerClass int `json:"max_students_per_class"`
	MaxTotalStudents    int `json:"max_total_students"`
	MaxWordSets         int `json:"max_word_sets"`
	MaxWordsPerWordSet  int `json:"max_words_per_word_set"`
}

var limitTable = map[Tier]Limits{
	Free: {
		MaxClasses:          1,
		MaxStudentsPerClass: Unlimited, // free caps in aggregate instead
		MaxTotalStudents:    30,
		MaxWordSets:         3,
		MaxWordsPerWordSet:  20,
	},
	Premium: {
		MaxClasses:          6,
		MaxStudentsPerClass: 40,
		MaxTotalStudents:    Unlimited,
		MaxWordSets:         30,
		MaxWordsPerWordSet:  50,
	},
	Pro: {
		MaxClasses:          Unlimited,
		MaxStudentsPerClass: 40,
		MaxTotalStudents:    Unlimited,
		MaxWordSets:         Unlimited,
		MaxWordsPerWordSet:  200,
	},
}

// LimitsFor returns the limit table for the given tier. Unknown tiers fall
// back to the free table, the most restrictive one.
func LimitsFor(t Tier) Limits {
	if l, ok := limitTable[t]; ok {
		return l
	}
	return limitTable[Free]
}

// Allows reports whether one more of a resource fits under limit.
func Allows(limit, current int) bool {
	if limit == Unlimited {
		return true
	}
	return current < limit
}

// Within reports whether an existing count already fits under limit.
func Within(limit, count int) bool {
	if limit == Unlimited {
		return true
	}
	return count <= limit
}
