// Package executor applies phase actions to a physical index through the
// engine gateway. Every action is idempotent at this level: applying an
// action to an index that already converged is a no-op success, so retries
// and crash-replays are safe.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/responses"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
)

// ShrinkTargetSuffix is appended to the source index name to build the
// shrink target.
const ShrinkTargetSuffix = "-shrink"

// Collaborator is the narrow index-management contract the executor needs
// from the engine. *services.OsClusterClient implements it.
type Collaborator interface {
	GetIndexState(ctx context.Context, index string) (services.IndexState, error)
	SetReadOnly(ctx context.Context, index string, readOnly bool) error
	SetReplicaCount(ctx context.Context, index string, replicas int64) error
	SetPriority(ctx context.Context, index string, priority int64) error
	RolloverAlias(ctx context.Context, alias string) (responses.RolloverResponse, error)
	ForceMerge(ctx context.Context, index string, maxNumSegments int64) error
	Shrink(ctx context.Context, index string, target string, targetShards int) error
	DeleteIndex(ctx context.Context, index string) error
	IndexExists(ctx context.Context, index string) (bool, error)
}

type Executor struct {
	engine  Collaborator
	timeout time.Duration
	logger  logr.Logger
}

// New builds an executor. Every engine call made during Apply is bounded
// by the given timeout; an expired deadline surfaces as the retryable
// services.ErrRequestTimeout.
func New(engine Collaborator, timeout time.Duration, logger logr.Logger) *Executor {
	return &Executor{
		engine:  engine,
		timeout: timeout,
		logger:  logger.WithValues("component", "executor"),
	}
}

// Apply runs a single action against the managed index.
func (e *Executor) Apply(ctx context.Context, action v1.Action, index *v1.ManagedIndex) error {
	kind := action.Kind()
	lg := e.logger.WithValues("index", index.Index, "action", kind)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	state, err := e.engine.GetIndexState(ctx, index.Index)
	if err != nil {
		if kind == v1.ActionDelete && errors.Is(err, services.ErrNotFound) {
			lg.V(1).Info("index already gone")
			return e.deleteShrinkTarget(ctx, index.Index, lg)
		}
		return err
	}

	switch kind {
	case v1.ActionReadOnly:
		if state.ReadOnly {
			lg.V(1).Info("index already read-only")
			return nil
		}
		return e.engine.SetReadOnly(ctx, index.Index, true)

	case v1.ActionSetPriority:
		if state.Priority == action.SetPriority.Priority {
			lg.V(1).Info("priority already converged")
			return nil
		}
		return e.engine.SetPriority(ctx, index.Index, action.SetPriority.Priority)

	case v1.ActionAllocate:
		if state.ReplicaCount == action.Allocate.ReplicaCount {
			lg.V(1).Info("replica count already converged")
			return nil
		}
		return e.engine.SetReplicaCount(ctx, index.Index, action.Allocate.ReplicaCount)

	case v1.ActionRollover:
		if index.RolloverAlias == "" {
			return services.PreconditionFailedError("rollover requires a write alias on index %s", index.Index)
		}
		if !state.IsWriteIndex() {
			// The alias already points at a newer index.
			lg.V(1).Info("index already rolled over")
			return nil
		}
		resp, err := e.engine.RolloverAlias(ctx, index.RolloverAlias)
		if err != nil {
			return err
		}
		lg.Info("rolled over write alias", "old_index", resp.OldIndex, "new_index", resp.NewIndex)
		return nil

	case v1.ActionForceMerge:
		if !state.ReadOnly {
			return services.PreconditionFailedError("force merge on %s requires the index to be read-only", index.Index)
		}
		return e.engine.ForceMerge(ctx, index.Index, action.ForceMerge.MaxNumSegments)

	case v1.ActionShrink:
		if !state.ReadOnly {
			return services.PreconditionFailedError("shrink on %s requires the index to be read-only", index.Index)
		}
		target := index.Index + ShrinkTargetSuffix
		exists, err := e.engine.IndexExists(ctx, target)
		if err != nil {
			return err
		}
		if exists {
			lg.V(1).Info("shrink target already exists", "target", target)
			return nil
		}
		return e.engine.Shrink(ctx, index.Index, target, action.Shrink.TargetShards)

	case v1.ActionDelete:
		if state.IsWriteIndex() {
			return services.NotEligibleError("index %s still serves live writes through alias %s", index.Index, state.WriteAlias)
		}
		if err := e.engine.DeleteIndex(ctx, index.Index); err != nil {
			return err
		}
		return e.deleteShrinkTarget(ctx, index.Index, lg)

	default:
		return services.PreconditionFailedError("unknown action on index %s", index.Index)
	}
}

// deleteShrinkTarget removes the index's shrink target alongside it.
// Shrunk data lives in the target, which nothing else manages; leaving
// it behind after the delete phase would strand it forever.
func (e *Executor) deleteShrinkTarget(ctx context.Context, index string, lg logr.Logger) error {
	target := index + ShrinkTargetSuffix
	exists, err := e.engine.IndexExists(ctx, target)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	lg.Info("deleting shrink target", "target", target)
	return e.engine.DeleteIndex(ctx, target)
}

// OrderActions returns the phase's actions in execution order: the
// declared order, except that a read_only action declared after a
// force_merge or shrink is pulled in front of it. Merge and shrink must
// never run against a writable index.
func OrderActions(actions []v1.Action) []v1.Action {
	firstDestructive := -1
	readOnlyAt := -1
	for i, action := range actions {
		switch action.Kind() {
		case v1.ActionForceMerge, v1.ActionShrink:
			if firstDestructive == -1 {
				firstDestructive = i
			}
		case v1.ActionReadOnly:
			if readOnlyAt == -1 {
				readOnlyAt = i
			}
		}
	}
	if readOnlyAt == -1 || firstDestructive == -1 || readOnlyAt < firstDestructive {
		return actions
	}

	ordered := make([]v1.Action, 0, len(actions))
	for i, action := range actions {
		if i == firstDestructive {
			ordered = append(ordered, actions[readOnlyAt])
		}
		if i == readOnlyAt {
			continue
		}
		ordered = append(ordered, action)
	}
	return ordered
}
