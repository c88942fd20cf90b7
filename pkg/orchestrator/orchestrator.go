// Package orchestrator owns the per-index lifecycle state machine. A
// ticker loop evaluates every eligible managed index, sequences the
// actions of a phase transition through the executor and commits the
// outcome to the state store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/evaluator"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/metrics"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

// historyLimit caps the transition records kept per index.
const historyLimit = 50

type Options struct {
	TickInterval time.Duration
	// MaxConcurrentTransitions bounds how many indices are processed in
	// parallel within one tick.
	MaxConcurrentTransitions int
	// EngineCallTimeout bounds the state-refresh and discovery calls the
	// orchestrator makes outside the executor. A hung engine must never
	// block a tick indefinitely; expiry surfaces as the retryable
	// timeout kind.
	EngineCallTimeout time.Duration
}

type Orchestrator struct {
	store    store.Store
	engine   EngineClient
	executor *executor.Executor
	metrics  *metrics.Metrics
	logger   logr.Logger
	opts     Options

	// leases guards against two concurrent transitions of the same index.
	leaseMu sync.Mutex
	leases  map[string]struct{}

	now func() time.Time
}

func New(st store.Store, engine EngineClient, exec *executor.Executor, m *metrics.Metrics, logger logr.Logger, opts Options) *Orchestrator {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 30 * time.Second
	}
	if opts.MaxConcurrentTransitions <= 0 {
		opts.MaxConcurrentTransitions = 8
	}
	if opts.EngineCallTimeout <= 0 {
		opts.EngineCallTimeout = time.Minute
	}
	return &Orchestrator{
		store:    st,
		engine:   engine,
		executor: exec,
		metrics:  m,
		logger:   logger.WithValues("component", "orchestrator"),
		opts:     opts,
		leases:   map[string]struct{}{},
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started", "tick_interval", o.opts.TickInterval.String())
	ticker := time.NewTicker(o.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping")
			return nil
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs one full evaluation pass: discover new indices, then process
// every eligible managed index. Indices are processed concurrently up to
// MaxConcurrentTransitions; failures are isolated per index.
func (o *Orchestrator) Tick(ctx context.Context) {
	start := o.now()

	if err := o.discover(ctx); err != nil {
		o.logger.Error(err, "index discovery failed")
	}

	eligible, err := o.store.ListEligible(ctx)
	if err != nil {
		o.logger.Error(err, "failed to list eligible indices")
		return
	}

	sem := make(chan struct{}, o.opts.MaxConcurrentTransitions)
	var wg sync.WaitGroup
	for _, managed := range eligible {
		if ctx.Err() != nil {
			break
		}
		if !o.acquireLease(managed.Index) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(index string) {
			defer wg.Done()
			defer func() {
				<-sem
				o.releaseLease(index)
			}()
			if err := o.ProcessIndex(ctx, index); err != nil {
				o.logger.V(1).Info("index processing failed", "index", index, "error", err.Error())
			}
		}(managed.Index)
	}
	wg.Wait()

	o.metrics.TickDuration.Observe(o.now().Sub(start).Seconds())
	if all, err := o.store.ListIndices(ctx); err == nil {
		o.metrics.ManagedIndices.Set(float64(len(all)))
	}
}

// fetchIndexState refreshes the observed state under the engine-call
// deadline. Deadline expiry is classified as the retryable timeout kind
// so a hung engine degrades to retry-next-tick instead of stalling the
// worker goroutine.
func (o *Orchestrator) fetchIndexState(ctx context.Context, index string) (services.IndexState, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.EngineCallTimeout)
	defer cancel()
	state, err := o.engine.GetIndexState(ctx, index)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = services.WrapTransportError(err)
	}
	return state, err
}

// listEngineIndices is the deadline-bounded discovery listing.
func (o *Orchestrator) listEngineIndices(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.EngineCallTimeout)
	defer cancel()
	names, err := o.engine.GetIndices(ctx, pattern)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = services.WrapTransportError(err)
	}
	return names, err
}

func (o *Orchestrator) acquireLease(index string) bool {
	o.leaseMu.Lock()
	defer o.leaseMu.Unlock()
	if _, held := o.leases[index]; held {
		return false
	}
	o.leases[index] = struct{}{}
	return true
}

func (o *Orchestrator) releaseLease(index string) {
	o.leaseMu.Lock()
	defer o.leaseMu.Unlock()
	delete(o.leases, index)
}

// ProcessIndex evaluates and, if due, transitions a single managed
// index. The caller must hold the index's lease.
func (o *Orchestrator) ProcessIndex(ctx context.Context, index string) error {
	managed, err := o.store.GetIndex(ctx, index)
	if err != nil {
		return err
	}
	return o.process(ctx, &managed)
}

func (o *Orchestrator) process(ctx context.Context, managed *v1.ManagedIndex) error {
	lg := o.logger.WithValues("index", managed.Index, "phase", managed.Phase)
	now := o.now()

	state, err := o.fetchIndexState(ctx, managed.Index)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return o.handleMissingIndex(ctx, managed, lg)
		}
		managed.LastError = err.Error()
		if upsertErr := o.store.UpsertIndex(ctx, *managed); upsertErr != nil {
			return upsertErr
		}
		return err
	}

	// The engine is the source of truth for observed attributes; local
	// bookkeeping is refreshed on every pass so stale state after a crash
	// self-corrects.
	managed.Metrics = v1.IndexMetrics{
		SizeBytes:    state.SizeBytes,
		DocCount:     state.DocCount,
		ReadOnly:     state.ReadOnly,
		ReplicaCount: state.ReplicaCount,
		Priority:     state.Priority,
		IsWriteIndex: state.IsWriteIndex(),
	}
	if managed.CreatedAt.IsZero() {
		managed.CreatedAt = state.CreationDate
	}
	if managed.RolloverAlias == "" && state.WriteAlias != "" {
		managed.RolloverAlias = state.WriteAlias
	}
	managed.EvaluatedAt = now

	policy, err := o.store.GetPolicy(ctx, managed.PolicyID)
	if err != nil {
		managed.LastError = fmt.Sprintf("policy %s: %v", managed.PolicyID, err)
		if errors.Is(err, store.ErrNotFound) {
			// A vanished policy will not come back on its own.
			managed.Paused = true
		}
		if upsertErr := o.store.UpsertIndex(ctx, *managed); upsertErr != nil {
			return upsertErr
		}
		return err
	}

	if managed.Transition == nil {
		decision := evaluator.Evaluate(managed, &policy, now)
		if decision.Kind == evaluator.Stay {
			lg.V(1).Info("staying in phase", "reason", decision.Reason)
			return o.store.UpsertIndex(ctx, *managed)
		}
		lg.Info("starting phase transition", "target", decision.Next, "reason", decision.Reason)
		managed.Transition = &v1.TransitionProgress{Target: decision.Next, StartedAt: now}
	}

	return o.runTransition(ctx, managed, &policy)
}

// handleMissingIndex resolves a managed record whose physical index no
// longer exists. During a delete transition that is the expected outcome
// and the record is purged; otherwise the index disappeared behind the
// orchestrator's back and the record is paused for an operator to look at.
func (o *Orchestrator) handleMissingIndex(ctx context.Context, managed *v1.ManagedIndex, lg logr.Logger) error {
	deleting := managed.Phase == v1.PhaseDelete ||
		(managed.Transition != nil && managed.Transition.Target == v1.PhaseDelete)
	if deleting {
		lg.Info("index deleted, purging record")
		o.metrics.TransitionsTotal.WithLabelValues(string(v1.PhaseDelete), string(v1.OutcomeDeleted)).Inc()
		return o.store.RemoveIndex(ctx, managed.Index)
	}
	managed.LastError = "index missing from engine"
	managed.Paused = true
	lg.Info("index missing from engine, pausing record")
	return o.store.UpsertIndex(ctx, *managed)
}

// runTransition applies the remaining actions of the in-flight transition.
// Progress is committed after every action so a retry resumes at the
// failed action instead of replaying the whole phase. Cancellation is
// honored between actions, never mid-action.
func (o *Orchestrator) runTransition(ctx context.Context, managed *v1.ManagedIndex, policy *v1.Policy) error {
	transition := managed.Transition
	lg := o.logger.WithValues("index", managed.Index, "phase", managed.Phase, "target", transition.Target)

	actions := o.transitionActions(managed, policy, transition.Target)

	deleted := false
	for i := transition.CompletedActions; i < len(actions); i++ {
		if err := ctx.Err(); err != nil {
			// Shutdown between actions: progress is already persisted,
			// the next tick picks up where we stopped.
			return o.store.UpsertIndex(ctx, *managed)
		}

		action := actions[i]
		if err := o.executor.Apply(ctx, action, managed); err != nil {
			return o.recordActionFailure(ctx, managed, action, err, lg)
		}
		transition.CompletedActions = i + 1
		if action.Kind() == v1.ActionDelete {
			deleted = true
		}
		if err := o.store.UpsertIndex(ctx, *managed); err != nil {
			return err
		}
	}

	if deleted {
		lg.Info("phase transition completed, index deleted")
		o.metrics.TransitionsTotal.WithLabelValues(string(transition.Target), string(v1.OutcomeDeleted)).Inc()
		return o.store.RemoveIndex(ctx, managed.Index)
	}

	outcome := v1.OutcomeCompleted
	if transition.Forced {
		outcome = v1.OutcomeForced
	}
	managed.Phase = transition.Target
	managed.Transition = nil
	managed.LastError = ""
	managed.History = appendHistory(managed.History, v1.TransitionRecord{
		ID:        uuid.NewString(),
		Phase:     transition.Target,
		Timestamp: o.now(),
		Outcome:   outcome,
	})
	lg.Info("phase transition completed", "outcome", outcome)
	o.metrics.TransitionsTotal.WithLabelValues(string(transition.Target), string(outcome)).Inc()
	return o.store.UpsertIndex(ctx, *managed)
}

// transitionActions builds the ordered action list for a transition. The
// target phase's actions run in declared order with the read-only
// ordering constraint enforced; when the index leaves hot through a
// rollover policy the rollover itself runs first, so the write alias has
// moved on before warm actions touch the index.
func (o *Orchestrator) transitionActions(managed *v1.ManagedIndex, policy *v1.Policy, target v1.PhaseName) []v1.Action {
	var actions []v1.Action
	if managed.Phase == v1.PhaseHot && target.Rank() > v1.PhaseHot.Rank() && managed.RolloverAlias != "" {
		if hot := policy.Phase(v1.PhaseHot); hot != nil {
			for _, action := range hot.Actions {
				if action.Rollover != nil {
					actions = append(actions, action)
					break
				}
			}
		}
	}
	if phase := policy.Phase(target); phase != nil {
		actions = append(actions, executor.OrderActions(phase.Actions)...)
	}
	return actions
}

func (o *Orchestrator) recordActionFailure(ctx context.Context, managed *v1.ManagedIndex, action v1.Action, err error, lg logr.Logger) error {
	kind := errorKind(err)
	o.metrics.ActionFailures.WithLabelValues(string(action.Kind()), kind).Inc()
	managed.LastError = err.Error()
	if !services.IsRetryable(err) {
		// NotEligible needs an operator decision, automatic retries would
		// just repeat the refusal.
		managed.Paused = true
		lg.Info("action not eligible, pausing index", "action", action.Kind(), "error", err.Error())
	} else {
		lg.V(1).Info("action failed, retrying next tick", "action", action.Kind(), "error", err.Error())
	}
	if upsertErr := o.store.UpsertIndex(ctx, *managed); upsertErr != nil {
		return upsertErr
	}
	return err
}

func appendHistory(history []v1.TransitionRecord, record v1.TransitionRecord) []v1.TransitionRecord {
	history = append(history, record)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}

// errorKind maps an action failure onto the label used by the failure
// counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, services.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, services.ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrEngineOperation):
		return "engine"
	default:
		return "internal"
	}
}
