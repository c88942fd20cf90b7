package v1

import "time"

// ManagedIndex is the persisted record of an index bound to a policy. It
// is in exactly one phase at a time and only moves forward through the
// canonical phase order unless an operator forces a phase.
type ManagedIndex struct {
	Index    string    `json:"index"`
	PolicyID string    `json:"policy_id"`
	Phase    PhaseName `json:"phase"`
	// RolloverAlias is the write alias the index serves, empty if none.
	RolloverAlias string       `json:"rollover_alias,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Metrics       IndexMetrics `json:"metrics"`
	EvaluatedAt   time.Time    `json:"evaluated_at,omitempty"`
	// Transition is set while a phase change is in flight or pending
	// retry; CompletedActions lets a retry resume at the failed action.
	Transition *TransitionProgress `json:"transition,omitempty"`
	History    []TransitionRecord  `json:"history,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
	// Paused excludes the index from automatic evaluation. Set by the
	// pause operation or after a non-retryable failure.
	Paused bool `json:"paused,omitempty"`
}

// IndexMetrics holds the last-observed attributes of the physical index.
// They double as the re-derivation source after a crash: the orchestrator
// trusts these over local phase bookkeeping when they disagree.
type IndexMetrics struct {
	SizeBytes    int64 `json:"size_bytes"`
	DocCount     int64 `json:"doc_count"`
	ReadOnly     bool  `json:"read_only"`
	ReplicaCount int64 `json:"replica_count"`
	Priority     int64 `json:"priority"`
	IsWriteIndex bool  `json:"is_write_index"`
}

// Age of the index relative to now.
func (m *ManagedIndex) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// TransitionProgress tracks a phase change across ticks.
type TransitionProgress struct {
	Target           PhaseName `json:"target"`
	CompletedActions int       `json:"completed_actions"`
	StartedAt        time.Time `json:"started_at"`
	// Forced marks an operator-initiated phase change, which may move
	// backward through the canonical order.
	Forced bool `json:"forced,omitempty"`
}

// TransitionOutcome is the result recorded for a finished transition.
type TransitionOutcome string

const (
	OutcomeCompleted TransitionOutcome = "completed"
	OutcomeForced    TransitionOutcome = "forced"
	OutcomeDeleted   TransitionOutcome = "deleted"
)

// TransitionRecord is one entry in the transition history.
type TransitionRecord struct {
	ID        string            `json:"id"`
	Phase     PhaseName         `json:"phase"`
	Timestamp time.Time         `json:"timestamp"`
	Outcome   TransitionOutcome `json:"outcome"`
}
