// Package evaluator decides phase transitions. It is pure: it looks at a
// managed index's last-observed metrics and its policy and returns a
// decision, it never talks to the engine or the store.
package evaluator

import (
	"time"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
)

type DecisionKind int

const (
	Stay DecisionKind = iota
	Advance
)

// Decision is the outcome of evaluating a managed index against its
// policy: either stay in the current phase or advance to Next.
type Decision struct {
	Kind DecisionKind
	Next v1.PhaseName
	// Reason is a short human-readable explanation surfaced by explain.
	Reason string
}

func stay(reason string) Decision {
	return Decision{Kind: Stay, Reason: reason}
}

func advance(next v1.PhaseName, reason string) Decision {
	return Decision{Kind: Advance, Next: next, Reason: reason}
}

// Evaluate decides whether the index should move to the next configured
// phase. The next phase's min_age is checked against index age; in the hot
// phase the rollover thresholds are also checked, disjunctively — any one
// satisfied condition is enough.
func Evaluate(index *v1.ManagedIndex, policy *v1.Policy, now time.Time) Decision {
	next := policy.NextPhase(index.Phase)
	if next == nil {
		return stay("terminal phase for this policy")
	}

	age := index.Age(now)

	if next.MinAge != nil && age >= next.MinAge.Duration() {
		return advance(next.Name, "min_age of "+next.MinAge.String()+" reached")
	}

	if index.Phase == v1.PhaseHot {
		if current := policy.Phase(v1.PhaseHot); current != nil {
			for _, action := range current.Actions {
				if action.Rollover == nil {
					continue
				}
				if reason, met := rolloverConditionMet(action.Rollover, index, age); met {
					return advance(next.Name, reason)
				}
			}
		}
	}

	if next.MinAge == nil {
		// A configured next phase without min_age is entered as soon as
		// it is evaluated.
		return advance(next.Name, "no min_age configured on next phase")
	}

	return stay("conditions for " + string(next.Name) + " not met")
}

// rolloverConditionMet applies the OR semantics over the rollover
// thresholds. First true wins, there is no ordering among them.
func rolloverConditionMet(r *v1.RolloverAction, index *v1.ManagedIndex, age time.Duration) (string, bool) {
	if r.MaxAge != nil && age >= r.MaxAge.Duration() {
		return "rollover max_age of " + r.MaxAge.String() + " reached", true
	}
	if r.MaxSize != nil && index.Metrics.SizeBytes >= int64(*r.MaxSize) {
		return "rollover max_size of " + r.MaxSize.String() + " reached", true
	}
	if r.MaxDocs != nil && index.Metrics.DocCount >= *r.MaxDocs {
		return "rollover max_docs reached", true
	}
	return "", false
}
