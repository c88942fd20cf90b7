package orchestrator

import (
	"context"
	"errors"
	"strings"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/executor"
	"github.com/Opster/opensearch-ilm-orchestrator/pkg/store"
)

// discover binds engine indices matching a policy template to that
// policy. When several templates match the same index the highest
// template priority wins. Already-managed indices are left alone.
func (o *Orchestrator) discover(ctx context.Context) error {
	policies, err := o.store.ListPolicies(ctx)
	if err != nil {
		return err
	}

	type binding struct {
		policyID string
		priority int
	}
	bindings := map[string]binding{}

	for _, policy := range policies {
		if policy.Template == nil {
			continue
		}
		for _, pattern := range policy.Template.IndexPatterns {
			names, err := o.listEngineIndices(ctx, pattern)
			if err != nil {
				o.logger.Error(err, "failed to list indices for template", "policy", policy.ID, "pattern", pattern)
				continue
			}
			for _, name := range names {
				// Shrink targets are managed through their source index.
				if strings.HasSuffix(name, executor.ShrinkTargetSuffix) {
					continue
				}
				current, bound := bindings[name]
				if !bound || policy.Template.Priority > current.priority {
					bindings[name] = binding{policyID: policy.ID, priority: policy.Template.Priority}
				}
			}
		}
	}

	for name, bound := range bindings {
		if _, err := o.store.GetIndex(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := o.bindIndex(ctx, name, bound.policyID); err != nil {
			o.logger.Error(err, "failed to bind discovered index", "index", name, "policy", bound.policyID)
		}
	}
	return nil
}

// bindIndex creates the managed record for a newly discovered index,
// seeded from the engine's observed state. New indices start in hot.
func (o *Orchestrator) bindIndex(ctx context.Context, index string, policyID string) error {
	state, err := o.fetchIndexState(ctx, index)
	if err != nil {
		return err
	}
	managed := v1.ManagedIndex{
		Index:         index,
		PolicyID:      policyID,
		Phase:         v1.PhaseHot,
		RolloverAlias: state.WriteAlias,
		CreatedAt:     state.CreationDate,
		EvaluatedAt:   o.now(),
		Metrics: v1.IndexMetrics{
			SizeBytes:    state.SizeBytes,
			DocCount:     state.DocCount,
			ReadOnly:     state.ReadOnly,
			ReplicaCount: state.ReplicaCount,
			Priority:     state.Priority,
			IsWriteIndex: state.IsWriteIndex(),
		},
	}
	o.logger.Info("discovered index, binding to policy", "index", index, "policy", policyID)
	return o.store.UpsertIndex(ctx, managed)
}
