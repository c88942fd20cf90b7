package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/evaluator"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

// ErrPolicyInUse is returned when deleting a policy that still has
// indices bound to it.
var ErrPolicyInUse = errors.New("policy still in use")

// Explanation is the operator-facing view of a managed index: its last
// known-good phase plus whatever is pending or failing right now.
type Explanation struct {
	Index         string                 `json:"index"`
	PolicyID      string                 `json:"policy_id"`
	Phase         v1.PhaseName           `json:"phase"`
	Age           string                 `json:"age"`
	Metrics       v1.IndexMetrics        `json:"metrics"`
	Decision      string                 `json:"decision"`
	Transition    *v1.TransitionProgress `json:"transition,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
	Paused        bool                   `json:"paused"`
	History       []v1.TransitionRecord  `json:"history,omitempty"`
	RolloverAlias string                 `json:"rollover_alias,omitempty"`
}

// ApplyPolicy validates and stores a policy. Invalid policies are
// rejected and never stored. Returns false when the stored policy is
// already identical, so callers can distinguish a no-op reapply.
func (o *Orchestrator) ApplyPolicy(ctx context.Context, policy v1.Policy) (bool, error) {
	if err := policy.Validate(); err != nil {
		return false, err
	}
	existing, err := o.store.GetPolicy(ctx, policy.ID)
	if err == nil && cmp.Equal(existing, policy) {
		o.logger.V(1).Info("policy unchanged", "policy", policy.ID)
		return false, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if err := o.store.PutPolicy(ctx, policy); err != nil {
		return false, err
	}
	o.logger.Info("policy applied", "policy", policy.ID)
	return true, nil
}

func (o *Orchestrator) GetPolicy(ctx context.Context, id string) (v1.Policy, error) {
	return o.store.GetPolicy(ctx, id)
}

func (o *Orchestrator) ListPolicies(ctx context.Context) ([]v1.Policy, error) {
	return o.store.ListPolicies(ctx)
}

// DeletePolicy removes a policy. It refuses while indices are still
// bound to it, otherwise those records would pause one by one on their
// next evaluation.
func (o *Orchestrator) DeletePolicy(ctx context.Context, id string) error {
	if _, err := o.store.GetPolicy(ctx, id); err != nil {
		return err
	}
	indices, err := o.store.ListIndices(ctx)
	if err != nil {
		return err
	}
	bound := 0
	for _, managed := range indices {
		if managed.PolicyID == id {
			bound++
		}
	}
	if bound > 0 {
		return fmt.Errorf("%w: policy %s still manages %d indices", ErrPolicyInUse, id, bound)
	}
	o.logger.Info("policy deleted", "policy", id)
	return o.store.DeletePolicy(ctx, id)
}

func (o *Orchestrator) ListIndices(ctx context.Context) ([]v1.ManagedIndex, error) {
	return o.store.ListIndices(ctx)
}

// Explain reports the current phase, pending transition, last error and
// history of a managed index together with what the evaluator would
// decide right now.
func (o *Orchestrator) Explain(ctx context.Context, index string) (Explanation, error) {
	managed, err := o.store.GetIndex(ctx, index)
	if err != nil {
		return Explanation{}, err
	}
	now := o.now()
	explanation := Explanation{
		Index:         managed.Index,
		PolicyID:      managed.PolicyID,
		Phase:         managed.Phase,
		Age:           now.Sub(managed.CreatedAt).Truncate(time.Second).String(),
		Metrics:       managed.Metrics,
		Transition:    managed.Transition,
		LastError:     managed.LastError,
		Paused:        managed.Paused,
		History:       managed.History,
		RolloverAlias: managed.RolloverAlias,
	}
	if policy, err := o.store.GetPolicy(ctx, managed.PolicyID); err == nil {
		decision := evaluator.Evaluate(&managed, &policy, now)
		explanation.Decision = decision.Reason
	} else {
		explanation.Decision = fmt.Sprintf("policy %s unavailable", managed.PolicyID)
	}
	return explanation, nil
}

// RetryNow clears the paused flag and processes the index immediately
// instead of waiting for the next tick. An in-flight transition resumes
// at its first incomplete action.
func (o *Orchestrator) RetryNow(ctx context.Context, index string) error {
	if !o.acquireLease(index) {
		return fmt.Errorf("index %s has a transition in flight", index)
	}
	defer o.releaseLease(index)

	managed, err := o.store.GetIndex(ctx, index)
	if err != nil {
		return err
	}
	managed.Paused = false
	if err := o.store.UpsertIndex(ctx, managed); err != nil {
		return err
	}
	return o.process(ctx, &managed)
}

// ForcePhase moves the index to the given phase, bypassing the
// evaluator. It may move backward through the canonical order; the
// target phase's actions still run through the executor so idempotency
// and precondition checks hold.
func (o *Orchestrator) ForcePhase(ctx context.Context, index string, phase v1.PhaseName) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", v1.ErrInvalidPolicy, phase)
	}
	if !o.acquireLease(index) {
		return fmt.Errorf("index %s has a transition in flight", index)
	}
	defer o.releaseLease(index)

	managed, err := o.store.GetIndex(ctx, index)
	if err != nil {
		return err
	}
	policy, err := o.store.GetPolicy(ctx, managed.PolicyID)
	if err != nil {
		return err
	}
	if policy.Phase(phase) == nil {
		return fmt.Errorf("%w: policy %s does not configure phase %q", v1.ErrInvalidPolicy, policy.ID, phase)
	}

	o.logger.Info("forcing phase", "index", index, "target", phase)
	managed.Paused = false
	managed.LastError = ""
	managed.Transition = &v1.TransitionProgress{Target: phase, StartedAt: o.now(), Forced: true}
	if err := o.store.UpsertIndex(ctx, managed); err != nil {
		return err
	}
	return o.runTransition(ctx, &managed, &policy)
}

// Pause excludes the index from automatic evaluation.
func (o *Orchestrator) Pause(ctx context.Context, index string) error {
	return o.setPaused(ctx, index, true)
}

// Resume puts the index back under automatic evaluation.
func (o *Orchestrator) Resume(ctx context.Context, index string) error {
	return o.setPaused(ctx, index, false)
}

func (o *Orchestrator) setPaused(ctx context.Context, index string, paused bool) error {
	managed, err := o.store.GetIndex(ctx, index)
	if err != nil {
		return err
	}
	managed.Paused = paused
	o.logger.Info("changed pause state", "index", index, "paused", paused)
	return o.store.UpsertIndex(ctx, managed)
}
