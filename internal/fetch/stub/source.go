// Package stub provides deterministic in-memory fetch sources for tests
// and offline runs.
package stub

import (
	"context"
	"fmt"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/fetch"
)

// PriceSource returns fixed in-memory price points for testing.
// Implements fetch.PriceSource.
type PriceSource struct {
	points map[string][]domain.PricePoint // keyed by pool_id
	errs   map[string]error               // forced per-pool errors
}

// NewPriceSource creates a stub source serving the given points per pool id.
func NewPriceSource(points map[string][]domain.PricePoint) *PriceSource {
	if points == nil {
		points = make(map[string][]domain.PricePoint)
	}
	return &PriceSource{
		points: points,
		errs:   make(map[string]error),
	}
}

// Compile-time interface check.
var _ fetch.PriceSource = (*PriceSource)(nil)

// FailPool makes fetches for the pool id return err.
func (s *PriceSource) FailPool(poolID string, err error) {
	s.errs[poolID] = err
}

// FetchSeries returns points matching the pool and request window.
// Returns copies to prevent mutation.
func (s *PriceSource) FetchSeries(_ context.Context, pool domain.Pool, req fetch.Request) (domain.PriceSeries, error) {
	if err := s.errs[pool.PoolID]; err != nil {
		return domain.PriceSeries{}, err
	}

	var result []domain.PricePoint
	for _, p := range s.points[pool.PoolID] {
		if p.TimestampMs >= req.StartMs && p.TimestampMs <= req.EndMs {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("pool %s: %w", pool.PoolID, fetch.ErrNoData)
	}
	return domain.PriceSeries{Pool: pool, Points: result}, nil
}

// PoolDiscoverer returns a fixed pool list for testing.
// Implements fetch.PoolDiscoverer.
type PoolDiscoverer struct {
	pools []domain.Pool
}

// NewPoolDiscoverer creates a stub discoverer with the given pools.
func NewPoolDiscoverer(pools []domain.Pool) *PoolDiscoverer {
	return &PoolDiscoverer{pools: pools}
}

// Compile-time interface check.
var _ fetch.PoolDiscoverer = (*PoolDiscoverer)(nil)

// DiscoverPools returns pools matching the filter's chain and dex.
func (d *PoolDiscoverer) DiscoverPools(_ context.Context, filter fetch.PoolFilter) ([]domain.Pool, error) {
	var result []domain.Pool
	for _, p := range d.pools {
		if p.Chain != filter.Chain {
			continue
		}
		if filter.Dex != "" && p.Dex != filter.Dex {
			continue
		}
		if p.TVL < filter.MinTVL {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}
