package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	v1 "github.com/Opster/opensearch-ilm-orchestrator/api/v1"
)

const (
	indexKeyPrefix  = "index/"
	policyKeyPrefix = "policy/"
)

// BadgerStore is the embedded durable implementation of Store. Records
// are JSON-encoded under "index/<name>" and "policy/<id>" keys.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) get(key string, out interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *BadgerStore) put(key string, val interface{}) error {
	encoded, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encoded)
	})
}

func (s *BadgerStore) remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStore) GetIndex(ctx context.Context, index string) (v1.ManagedIndex, error) {
	var managed v1.ManagedIndex
	err := s.get(indexKeyPrefix+index, &managed)
	return managed, err
}

func (s *BadgerStore) UpsertIndex(ctx context.Context, managed v1.ManagedIndex) error {
	if managed.Index == "" {
		return fmt.Errorf("managed index record has no index name")
	}
	return s.put(indexKeyPrefix+managed.Index, managed)
}

func (s *BadgerStore) RemoveIndex(ctx context.Context, index string) error {
	return s.remove(indexKeyPrefix + index)
}

func (s *BadgerStore) ListIndices(ctx context.Context) ([]v1.ManagedIndex, error) {
	var indices []v1.ManagedIndex
	err := s.scan(indexKeyPrefix, func(val []byte) error {
		var managed v1.ManagedIndex
		if err := json.Unmarshal(val, &managed); err != nil {
			return err
		}
		indices = append(indices, managed)
		return nil
	})
	return indices, err
}

func (s *BadgerStore) ListEligible(ctx context.Context) ([]v1.ManagedIndex, error) {
	all, err := s.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	eligible := all[:0]
	for _, managed := range all {
		if !managed.Paused {
			eligible = append(eligible, managed)
		}
	}
	return eligible, nil
}

func (s *BadgerStore) GetPolicy(ctx context.Context, id string) (v1.Policy, error) {
	var policy v1.Policy
	err := s.get(policyKeyPrefix+id, &policy)
	return policy, err
}

func (s *BadgerStore) PutPolicy(ctx context.Context, policy v1.Policy) error {
	if policy.ID == "" {
		return fmt.Errorf("policy record has no id")
	}
	return s.put(policyKeyPrefix+policy.ID, policy)
}

func (s *BadgerStore) DeletePolicy(ctx context.Context, id string) error {
	return s.remove(policyKeyPrefix + id)
}

func (s *BadgerStore) ListPolicies(ctx context.Context) ([]v1.Policy, error) {
	var policies []v1.Policy
	err := s.scan(policyKeyPrefix, func(val []byte) error {
		var policy v1.Policy
		if err := json.Unmarshal(val, &policy); err != nil {
			return err
		}
		policies = append(policies, policy)
		return nil
	})
	return policies, err
}

func (s *BadgerStore) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if err := it.Item().Value(fn); err != nil {
				return fmt.Errorf("decode record %s: %w", key, err)
			}
		}
		return nil
	})
}
