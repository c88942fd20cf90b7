package store

import (
	"context"
	"sync"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
)

// MemoryStore is a map-backed Store for tests and dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	indices  map[string]v1.ManagedIndex
	policies map[string]v1.Policy
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indices:  map[string]v1.ManagedIndex{},
		policies: map[string]v1.Policy{},
	}
}

func (s *MemoryStore) GetIndex(ctx context.Context, index string) (v1.ManagedIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	managed, ok := s.indices[index]
	if !ok {
		return v1.ManagedIndex{}, ErrNotFound
	}
	return managed, nil
}

func (s *MemoryStore) UpsertIndex(ctx context.Context, managed v1.ManagedIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices[managed.Index] = managed
	return nil
}

func (s *MemoryStore) RemoveIndex(ctx context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indices, index)
	return nil
}

func (s *MemoryStore) ListIndices(ctx context.Context) ([]v1.ManagedIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := make([]v1.ManagedIndex, 0, len(s.indices))
	for _, managed := range s.indices {
		indices = append(indices, managed)
	}
	return indices, nil
}

func (s *MemoryStore) ListEligible(ctx context.Context) ([]v1.ManagedIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var eligible []v1.ManagedIndex
	for _, managed := range s.indices {
		if !managed.Paused {
			eligible = append(eligible, managed)
		}
	}
	return eligible, nil
}

func (s *MemoryStore) GetPolicy(ctx context.Context, id string) (v1.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[id]
	if !ok {
		return v1.Policy{}, ErrNotFound
	}
	return policy, nil
}

func (s *MemoryStore) PutPolicy(ctx context.Context, policy v1.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.ID] = policy
	return nil
}

func (s *MemoryStore) DeletePolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, id)
	return nil
}

func (s *MemoryStore) ListPolicies(ctx context.Context) ([]v1.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policies := make([]v1.Policy, 0, len(s.policies))
	for _, policy := range s.policies {
		policies = append(policies, policy)
	}
	return policies, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
