package entitlements

import (
	"context"
	"fmt"

	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// ActionKind enumerates the resource mutations subject to limits.
type ActionKind string

const (
	ActionCreateClass   ActionKind = "create_class"
	ActionAddStudent    ActionKind = "add_student"
	ActionCreateWordSet ActionKind = "create_word_set"
	ActionAddWord       ActionKind = "add_word"
)

// Action is a proposed resource mutation. ClassID is required for
// add_student; WordSetID is required for add_word.
type Action struct {
	Kind      ActionKind
	ClassID   id.ClassID
	WordSetID id.WordSetID
}

// Decision is the outcome of a limit check. A denial is a normal outcome,
// not an error: Reason names the tier and the limit breached.
type Decision struct {
	Allowed bool      `json:"allowed"`
	Tier    tier.Tier `json:"tier"`
	Reason  string    `json:"reason,omitempty"`
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
}

// CanPerform decides whether the proposed mutation fits under the
// tenant's effective tier. Counts are queried fresh at decision time,
// never cached.
//
// The check and the caller's subsequent insert are two separate
// operations; two concurrent requests can both pass on a stale count.
// Tightening this to a transactional count-and-insert changes observable
// behavior, so it stays as is.
func (e *Engine) CanPerform(ctx context.Context, tenantID string, action Action) (Decision, error) {
	t, err := e.EffectiveTier(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}
	limits := tier.LimitsFor(t)

	var d Decision
	switch action.Kind {
	case ActionCreateClass:
		used, err := e.store.CountClasses(ctx, tenantID)
		if err != nil {
			return Decision{}, err
		}
		d = decide(t, "classes", limits.MaxClasses, used)

	case ActionAddStudent:
		d, err = e.checkAddStudent(ctx, tenantID, t, limits, action.ClassID)
		if err != nil {
			return Decision{}, err
		}

	case ActionCreateWordSet:
		used, err := e.store.CountWordSets(ctx, tenantID)
		if err != nil {
			return Decision{}, err
		}
		d = decide(t, "word sets", limits.MaxWordSets, used)

	case ActionAddWord:
		w, err := e.store.GetWordSet(ctx, tenantID, action.WordSetID)
		if err != nil {
			return Decision{}, err
		}
		d = decide(t, "words per word set", limits.MaxWordsPerWordSet, w.WordCount)

	default:
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}

	e.plugins.EmitEntitlementChecked(ctx, d)
	if !d.Allowed {
		e.plugins.EmitQuotaDenied(ctx, tenantID, string(action.Kind), d.Used, d.Limit)
		e.logger.Info("action denied",
			"tenant_id", tenantID,
			"action", action.Kind,
			"reason", d.Reason,
		)
	}
	return d, nil
}

// checkAddStudent applies the tier asymmetry: free caps students in
// aggregate across all classes, deduplicated by student id; paid tiers
// cap per class.
func (e *Engine) checkAddStudent(ctx context.Context, tenantID string, t tier.Tier, limits tier.Limits, classID id.ClassID) (Decision, error) {
	if t == tier.Free {
		links, err := e.store.ListStudents(ctx, tenantID)
		if err != nil {
			return Decision{}, err
		}
		seen := make(map[string]struct{}, len(links))
		for _, l := range links {
			seen[l.StudentID] = struct{}{}
		}
		return decide(t, "total students", limits.MaxTotalStudents, len(seen)), nil
	}

	used, err := e.store.CountStudentsInClass(ctx, tenantID, classID)
	if err != nil {
		return Decision{}, err
	}
	return decide(t, "students per class", limits.MaxStudentsPerClass, used), nil
}

func decide(t tier.Tier, what string, limit, used int) Decision {
	d := Decision{Tier: t, Used: used, Limit: limit}
	if tier.Allows(limit, used) {
		d.Allowed = true
		return d
	}
	d.Reason = fmt.Sprintf("%s tier allows at most %d %s, %d in use", t, limit, what, used)
	return d
}
