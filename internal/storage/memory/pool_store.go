package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]domain.Pool // keyed by pool_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]domain.Pool),
	}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert inserts or refreshes a pool.
func (s *PoolStore) Upsert(_ context.Context, p domain.Pool) error {
	if p.PoolID == "" || !p.Chain.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.PoolID] = p
	return nil
}

// GetByID retrieves a pool by address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, poolID string) (domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[poolID]
	if !ok {
		return domain.Pool{}, storage.ErrNotFound
	}
	return p, nil
}

// List retrieves pools filtered by chain and dex, ordered by TVL descending.
func (s *PoolStore) List(_ context.Context, chain domain.Chain, dex domain.Dex) ([]domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Pool
	for _, p := range s.data {
		if p.Chain != chain {
			continue
		}
		if dex != "" && p.Dex != dex {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TVL != out[j].TVL {
			return out[i].TVL > out[j].TVL
		}
		return out[i].PoolID < out[j].PoolID
	})
	return out, nil
}
