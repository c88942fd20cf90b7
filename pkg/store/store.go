// Package store persists managed-index records and lifecycle policies.
package store

import (
	"context"
	"errors"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the durable state the orchestrator relies on across restarts.
// Implementations must allow concurrent upserts of distinct indices.
type Store interface {
	GetIndex(ctx context.Context, index string) (v1.ManagedIndex, error)
	UpsertIndex(ctx context.Context, managed v1.ManagedIndex) error
	RemoveIndex(ctx context.Context, index string) error
	// ListIndices returns every managed index record.
	ListIndices(ctx context.Context) ([]v1.ManagedIndex, error)
	// ListEligible returns the records the next tick should evaluate,
	// i.e. everything not paused.
	ListEligible(ctx context.Context) ([]v1.ManagedIndex, error)

	GetPolicy(ctx context.Context, id string) (v1.Policy, error)
	PutPolicy(ctx context.Context, policy v1.Policy) error
	DeletePolicy(ctx context.Context, id string) error
	ListPolicies(ctx context.Context) ([]v1.Policy, error)

	Close() error
}
