package v1

// PhaseName identifies a stage in an index's lifecycle.
type PhaseName string

const (
	PhaseHot    PhaseName = "hot"
	PhaseWarm   PhaseName = "warm"
	PhaseCold   PhaseName = "cold"
	PhaseDelete PhaseName = "delete"
)

// PhaseOrder is the canonical phase order. Policies may omit trailing
// phases but may never reorder them.
var PhaseOrder = []PhaseName{PhaseHot, PhaseWarm, PhaseCold, PhaseDelete}

var phaseRank = map[PhaseName]int{
	PhaseHot:    0,
	PhaseWarm:   1,
	PhaseCold:   2,
	PhaseDelete: 3,
}

// Rank returns the position of the phase in the canonical order, or -1 for
// an unknown phase name.
func (p PhaseName) Rank() int {
	if r, ok := phaseRank[p]; ok {
		return r
	}
	return -1
}

func (p PhaseName) Valid() bool {
	return p.Rank() >= 0
}

// Policy is a lifecycle policy: an ordered list of phases with per-phase
// transition conditions and actions.
type Policy struct {
	ID          string `json:"policy_id"`
	Description string `json:"description,omitempty"`
	// Template binds newly discovered indices matching the patterns to
	// this policy.
	Template *Template `json:"template,omitempty"`
	Phases   []Phase   `json:"phases"`
}

// Template is an index pattern binding for a policy. When multiple
// templates match an index the highest priority wins.
type Template struct {
	IndexPatterns []string `json:"index_patterns"`
	Priority      int      `json:"priority,omitempty"`
}

// Phase is a named lifecycle stage. MinAge is the index age required to
// enter the phase; it must be unset for hot.
type Phase struct {
	Name     PhaseName `json:"name"`
	MinAge   *Duration `json:"min_age,omitempty"`
	Priority int       `json:"priority,omitempty"`
	Actions  []Action  `json:"actions,omitempty"`
}

// Phase lookup by name, nil if the policy does not configure it.
func (p *Policy) Phase(name PhaseName) *Phase {
	for i := range p.Phases {
		if p.Phases[i].Name == name {
			return &p.Phases[i]
		}
	}
	return nil
}

// NextPhase returns the first configured phase after the given one in
// canonical order, or nil if the given phase is terminal for this policy.
func (p *Policy) NextPhase(current PhaseName) *Phase {
	rank := current.Rank()
	var next *Phase
	for i := range p.Phases {
		r := p.Phases[i].Name.Rank()
		if r <= rank {
			continue
		}
		if next == nil || r < next.Name.Rank() {
			next = &p.Phases[i]
		}
	}
	return next
}

// Action is a tagged variant: exactly one of the pointer fields is set.
type Action struct {
	Rollover    *RolloverAction    `json:"rollover,omitempty"`
	SetPriority *SetPriorityAction `json:"set_priority,omitempty"`
	Allocate    *AllocateAction    `json:"allocate,omitempty"`
	ReadOnly    *ReadOnlyAction    `json:"read_only,omitempty"`
	ForceMerge  *ForceMergeAction  `json:"force_merge,omitempty"`
	Shrink      *ShrinkAction      `json:"shrink,omitempty"`
	Delete      *DeleteAction      `json:"delete,omitempty"`
}

// ActionKind names an action variant for logging, metrics and validation
// messages.
type ActionKind string

const (
	ActionRollover    ActionKind = "rollover"
	ActionSetPriority ActionKind = "set_priority"
	ActionAllocate    ActionKind = "allocate"
	ActionReadOnly    ActionKind = "read_only"
	ActionForceMerge  ActionKind = "force_merge"
	ActionShrink      ActionKind = "shrink"
	ActionDelete      ActionKind = "delete"
	ActionUnknown     ActionKind = "unknown"
)

// Kind returns the variant set on the action, or ActionUnknown if none is.
func (a Action) Kind() ActionKind {
	switch {
	case a.Rollover != nil:
		return ActionRollover
	case a.SetPriority != nil:
		return ActionSetPriority
	case a.Allocate != nil:
		return ActionAllocate
	case a.ReadOnly != nil:
		return ActionReadOnly
	case a.ForceMerge != nil:
		return ActionForceMerge
	case a.Shrink != nil:
		return ActionShrink
	case a.Delete != nil:
		return ActionDelete
	default:
		return ActionUnknown
	}
}

func (a Action) variantCount() int {
	count := 0
	for _, set := range []bool{
		a.Rollover != nil,
		a.SetPriority != nil,
		a.Allocate != nil,
		a.ReadOnly != nil,
		a.ForceMerge != nil,
		a.Shrink != nil,
		a.Delete != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// RolloverAction rolls the write alias over to a new physical index when
// any one of the thresholds is met (OR semantics).
type RolloverAction struct {
	MaxAge  *Duration `json:"max_age,omitempty"`
	MaxSize *ByteSize `json:"max_size,omitempty"`
	MaxDocs *int64    `json:"max_docs,omitempty"`
}

// SetPriorityAction sets the recovery priority of the index.
type SetPriorityAction struct {
	Priority int64 `json:"priority"`
}

// AllocateAction sets the replica count of the index.
type AllocateAction struct {
	ReplicaCount int64 `json:"replica_count"`
}

// ReadOnlyAction blocks writes on the index.
type ReadOnlyAction struct{}

// ForceMergeAction merges the index down to at most MaxNumSegments
// segments per shard. The index must already be read-only.
type ForceMergeAction struct {
	MaxNumSegments int64 `json:"max_num_segments"`
}

// ShrinkAction shrinks the index to TargetShards primary shards. The index
// must already be read-only.
type ShrinkAction struct {
	TargetShards int `json:"target_shards"`
}

// DeleteAction deletes the index. Terminal and irreversible.
type DeleteAction struct{}
