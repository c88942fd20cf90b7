// Package fake provides an in-memory engine used by executor and
// orchestrator tests. It tracks per-index attributes the way the real
// engine would and supports one-shot fault injection per operation.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/responses"
	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/services"
)

type Engine struct {
	mu      sync.Mutex
	indices map[string]*services.IndexState
	// calls records "<op> <index>" in invocation order.
	calls    []string
	failNext map[string]error
	rollSeq  int
}

func NewEngine() *Engine {
	return &Engine{
		indices:  map[string]*services.IndexState{},
		failNext: map[string]error{},
	}
}

// AddIndex registers a physical index with the given observed state.
func (e *Engine) AddIndex(state services.IndexState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := state
	e.indices[state.Index] = &s
}

// FailNext makes the next invocation of op return err.
func (e *Engine) FailNext(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext[op] = err
}

// Calls returns the recorded "<op> <index>" invocations.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// HasIndex reports whether the index still exists in the fake engine.
func (e *Engine) HasIndex(index string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.indices[index]
	return ok
}

// State returns a copy of the index state.
func (e *Engine) State(index string) (services.IndexState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.indices[index]
	if !ok {
		return services.IndexState{}, false
	}
	return *s, true
}

func (e *Engine) record(op, index string) error {
	e.calls = append(e.calls, op+" "+index)
	if err, ok := e.failNext[op]; ok {
		delete(e.failNext, op)
		return err
	}
	return nil
}

func (e *Engine) GetIndexState(ctx context.Context, index string) (services.IndexState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("get_state", index); err != nil {
		return services.IndexState{}, err
	}
	s, ok := e.indices[index]
	if !ok {
		return services.IndexState{}, services.NotFoundError(index)
	}
	return *s, nil
}

func (e *Engine) SetReadOnly(ctx context.Context, index string, readOnly bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("set_read_only", index); err != nil {
		return err
	}
	s, ok := e.indices[index]
	if !ok {
		return services.NotFoundError(index)
	}
	s.ReadOnly = readOnly
	return nil
}

func (e *Engine) SetReplicaCount(ctx context.Context, index string, replicas int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("set_replica_count", index); err != nil {
		return err
	}
	s, ok := e.indices[index]
	if !ok {
		return services.NotFoundError(index)
	}
	s.ReplicaCount = replicas
	return nil
}

func (e *Engine) SetPriority(ctx context.Context, index string, priority int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("set_priority", index); err != nil {
		return err
	}
	s, ok := e.indices[index]
	if !ok {
		return services.NotFoundError(index)
	}
	s.Priority = priority
	return nil
}

func (e *Engine) RolloverAlias(ctx context.Context, alias string) (responses.RolloverResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("rollover", alias); err != nil {
		return responses.RolloverResponse{}, err
	}
	for _, s := range e.indices {
		if s.WriteAlias != alias {
			continue
		}
		e.rollSeq++
		newName := fmt.Sprintf("%s-r%06d", alias, e.rollSeq)
		old := s.Index
		s.WriteAlias = ""
		e.indices[newName] = &services.IndexState{
			Index:      newName,
			WriteAlias: alias,
			Aliases:    []string{alias},
		}
		return responses.RolloverResponse{
			Acknowledged: true,
			RolledOver:   true,
			OldIndex:     old,
			NewIndex:     newName,
		}, nil
	}
	return responses.RolloverResponse{}, services.NotFoundError(alias)
}

func (e *Engine) ForceMerge(ctx context.Context, index string, maxNumSegments int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("force_merge", index); err != nil {
		return err
	}
	if _, ok := e.indices[index]; !ok {
		return services.NotFoundError(index)
	}
	return nil
}

func (e *Engine) Shrink(ctx context.Context, index string, target string, targetShards int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("shrink", index); err != nil {
		return err
	}
	s, ok := e.indices[index]
	if !ok {
		return services.NotFoundError(index)
	}
	e.indices[target] = &services.IndexState{
		Index:        target,
		ReadOnly:     true,
		ReplicaCount: s.ReplicaCount,
		Priority:     s.Priority,
	}
	return nil
}

func (e *Engine) DeleteIndex(ctx context.Context, index string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("delete", index); err != nil {
		return err
	}
	delete(e.indices, index)
	return nil
}

func (e *Engine) IndexExists(ctx context.Context, index string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("index_exists", index); err != nil {
		return false, err
	}
	_, ok := e.indices[index]
	return ok, nil
}

func (e *Engine) GetIndices(ctx context.Context, pattern string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("get_indices", pattern); err != nil {
		return nil, err
	}
	var names []string
	for name := range e.indices {
		if matchPattern(pattern, name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// matchPattern supports the trailing-star patterns policies actually use.
func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}
	return pattern == name
}
