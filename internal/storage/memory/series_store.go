package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]domain.PricePoint // keyed by (pool_id, interval, timestamp)
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]domain.PricePoint),
	}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// pointKey generates a unique key for a price point.
func pointKey(poolID string, intervalSeconds int, timestampMs int64) string {
	return fmt.Sprintf("%s|%d|%d", poolID, intervalSeconds, timestampMs)
}

// InsertPoints adds price points. Fails entire batch on duplicate.
func (s *SeriesStore) InsertPoints(_ context.Context, poolID string, intervalSeconds int, points []domain.PricePoint) error {
	if poolID == "" || intervalSeconds <= 0 {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: detect duplicates, existing and intra-batch.
	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		key := pointKey(poolID, intervalSeconds, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		s.data[pointKey(poolID, intervalSeconds, p.TimestampMs)] = p
	}
	return nil
}

// GetRange retrieves points within [startMs, endMs], ordered by timestamp ASC.
func (s *SeriesStore) GetRange(_ context.Context, poolID string, intervalSeconds int, startMs, endMs int64) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("%s|%d|", poolID, intervalSeconds)
	var out []domain.PricePoint
	for key, p := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix &&
			p.TimestampMs >= startMs && p.TimestampMs <= endMs {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out, nil
}
