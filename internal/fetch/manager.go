package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// Default fetch manager configuration.
const (
	DefaultWorkers     = 4
	DefaultPoolTimeout = 60 * time.Second
)

// Manager fetches series for many pools concurrently. Pools that fail or
// time out are reported as exclusions rather than failing the whole run.
type Manager struct {
	source            PriceSource
	cache             storage.SeriesStore
	workers           int
	poolTimeout       time.Duration
	validateAddresses bool
	log               zerolog.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	// Source fetches series for individual pools. Required.
	Source PriceSource

	// Cache, when set, is consulted before the source and updated after
	// a successful fetch.
	Cache storage.SeriesStore

	// Workers bounds fetch concurrency. Defaults to DefaultWorkers.
	Workers int

	// PoolTimeout bounds each pool's fetch. Defaults to DefaultPoolTimeout.
	PoolTimeout time.Duration

	// ValidateAddresses rejects malformed Solana pool ids before fetching.
	ValidateAddresses bool
}

// NewManager creates a fetch manager with the provided source and options.
func NewManager(opts ManagerOptions) *Manager {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := opts.PoolTimeout
	if timeout <= 0 {
		timeout = DefaultPoolTimeout
	}
	return &Manager{
		source:            opts.Source,
		cache:             opts.Cache,
		workers:           workers,
		poolTimeout:       timeout,
		validateAddresses: opts.ValidateAddresses,
		log:               log.With().Str("component", "fetch-manager").Logger(),
	}
}

type fetchResult struct {
	series domain.PriceSeries
	err    error
}

// FetchAll fetches each pool's series concurrently. Failed pools are
// returned as POOL_UNAVAILABLE exclusions; the series order follows the
// input pool order. Returns ErrAllPoolsFailed when no pool succeeds.
func (m *Manager) FetchAll(ctx context.Context, pools []domain.Pool, req Request) ([]domain.PriceSeries, []domain.Exclusion, error) {
	if len(pools) == 0 {
		return nil, nil, ErrAllPoolsFailed
	}

	results := make([]fetchResult, len(pools))
	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup

	for i, pool := range pools {
		wg.Add(1)
		go func(i int, pool domain.Pool) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = m.fetchOne(ctx, pool, req)
		}(i, pool)
	}
	wg.Wait()

	var (
		series     []domain.PriceSeries
		exclusions []domain.Exclusion
	)
	for i, res := range results {
		if res.err != nil {
			pool := pools[i]
			m.log.Warn().
				Str("pool", pool.PoolID).
				Str("asset", pool.Asset()).
				Err(res.err).
				Msg("pool fetch failed")
			exclusions = append(exclusions, domain.Exclusion{
				Asset:  pool.Asset(),
				PoolID: pool.PoolID,
				Reason: domain.ReasonPoolUnavailable,
				Detail: res.err.Error(),
			})
			continue
		}
		series = append(series, res.series)
	}

	if len(series) == 0 {
		return nil, exclusions, ErrAllPoolsFailed
	}
	return series, exclusions, nil
}

// fetchOne fetches a single pool's series within the per-pool timeout,
// reading through the cache when one is configured.
func (m *Manager) fetchOne(ctx context.Context, pool domain.Pool, req Request) fetchResult {
	if m.validateAddresses && pool.Chain == domain.ChainSolana {
		if err := ValidateSolanaAddress(pool.PoolID); err != nil {
			return fetchResult{err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.poolTimeout)
	defer cancel()

	if m.cache != nil {
		cached, err := m.cache.GetRange(ctx, pool.PoolID, req.IntervalSeconds, req.StartMs, req.EndMs)
		if err == nil && len(cached) >= 2 {
			return fetchResult{series: domain.PriceSeries{Pool: pool, Points: cached}}
		}
	}

	series, err := m.source.FetchSeries(ctx, pool, req)
	if err != nil {
		observability.RecordFetchError(pool.Chain.String())
		return fetchResult{err: err}
	}
	observability.RecordSeriesFetched(len(series.Points))

	if m.cache != nil {
		err := m.cache.InsertPoints(ctx, pool.PoolID, req.IntervalSeconds, series.Points)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			m.log.Warn().Str("pool", pool.PoolID).Err(err).Msg("cache write failed")
		}
	}

	return fetchResult{series: series}
}
