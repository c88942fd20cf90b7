package v1

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is wrapped by all policy validation failures. Invalid
// policies are rejected at apply time and never stored.
var ErrInvalidPolicy = errors.New("invalid policy")

func invalidPolicy(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, fmt.Sprintf(format, args...))
}

// Validate checks structural and semantic constraints on the policy:
// phases in canonical hot→warm→cold→delete order (trailing phases may be
// omitted), positive thresholds, and per-phase action compatibility.
func (p *Policy) Validate() error {
	if p.ID == "" {
		return invalidPolicy("policy_id cannot be empty")
	}
	if len(p.Phases) == 0 {
		return invalidPolicy("phases cannot be empty")
	}
	if p.Template != nil && len(p.Template.IndexPatterns) == 0 {
		return invalidPolicy("template index_patterns cannot be empty")
	}

	lastRank := -1
	for i := range p.Phases {
		phase := &p.Phases[i]
		if !phase.Name.Valid() {
			return invalidPolicy("unknown phase %q", phase.Name)
		}
		rank := phase.Name.Rank()
		if rank == lastRank {
			return invalidPolicy("phase %q is duplicated", phase.Name)
		}
		if rank < lastRank {
			return invalidPolicy("phase %q is out of order, phases must follow %v", phase.Name, PhaseOrder)
		}
		lastRank = rank

		if err := phase.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (ph *Phase) validate() error {
	if ph.Name == PhaseHot && ph.MinAge != nil {
		return invalidPolicy("hot phase cannot set min_age")
	}
	if ph.MinAge != nil && *ph.MinAge <= 0 {
		return invalidPolicy("phase %q min_age must be positive", ph.Name)
	}
	for _, action := range ph.Actions {
		if err := ph.validateAction(action); err != nil {
			return err
		}
	}
	return nil
}

func (ph *Phase) validateAction(action Action) error {
	if n := action.variantCount(); n != 1 {
		return invalidPolicy("phase %q has an action with %d variants set, expected exactly one", ph.Name, n)
	}
	kind := action.Kind()

	switch kind {
	case ActionRollover:
		if ph.Name != PhaseHot {
			return invalidPolicy("rollover is only valid in the hot phase, found in %q", ph.Name)
		}
		r := action.Rollover
		if r.MaxAge == nil && r.MaxSize == nil && r.MaxDocs == nil {
			return invalidPolicy("rollover requires at least one of max_age, max_size or max_docs")
		}
		if r.MaxAge != nil && *r.MaxAge <= 0 {
			return invalidPolicy("rollover max_age must be positive")
		}
		if r.MaxSize != nil && *r.MaxSize <= 0 {
			return invalidPolicy("rollover max_size must be positive")
		}
		if r.MaxDocs != nil && *r.MaxDocs <= 0 {
			return invalidPolicy("rollover max_docs must be positive")
		}
	case ActionDelete:
		if ph.Name != PhaseDelete {
			return invalidPolicy("delete action is only valid in the delete phase, found in %q", ph.Name)
		}
	case ActionForceMerge:
		if ph.Name == PhaseHot {
			return invalidPolicy("force_merge is not valid in the hot phase")
		}
		if action.ForceMerge.MaxNumSegments <= 0 {
			return invalidPolicy("force_merge max_num_segments must be positive")
		}
	case ActionShrink:
		if ph.Name == PhaseHot {
			return invalidPolicy("shrink is not valid in the hot phase")
		}
		if action.Shrink.TargetShards <= 0 {
			return invalidPolicy("shrink target_shards must be positive")
		}
	case ActionSetPriority:
		if action.SetPriority.Priority < 0 {
			return invalidPolicy("set_priority priority cannot be negative")
		}
	case ActionAllocate:
		if action.Allocate.ReplicaCount < 0 {
			return invalidPolicy("allocate replica_count cannot be negative")
		}
	case ActionReadOnly:
		// No parameters.
	default:
		return invalidPolicy("phase %q has an empty action", ph.Name)
	}
	return nil
}
