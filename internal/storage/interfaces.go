package storage

import (
	"context"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// PoolStore provides access to the discovered pool registry.
type PoolStore interface {
	// Upsert inserts or refreshes a pool. TVL and volume figures from a
	// newer discovery pass replace older ones.
	Upsert(ctx context.Context, p domain.Pool) error

	// GetByID retrieves a pool by address. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (domain.Pool, error)

	// List retrieves pools filtered by chain and dex. Empty dex means
	// all dexes on the chain. Ordered by TVL descending.
	List(ctx context.Context, chain domain.Chain, dex domain.Dex) ([]domain.Pool, error)
}

// SeriesStore caches fetched price history per (pool_id, interval).
type SeriesStore interface {
	// InsertPoints adds price points for a pool at a given interval.
	// Returns ErrDuplicateKey if any (pool_id, interval, timestamp)
	// already exists; the entire batch fails.
	InsertPoints(ctx context.Context, poolID string, intervalSeconds int, points []domain.PricePoint) error

	// GetRange retrieves points within [startMs, endMs] (inclusive),
	// ordered by timestamp ASC.
	GetRange(ctx context.Context, poolID string, intervalSeconds int, startMs, endMs int64) ([]domain.PricePoint, error)
}
