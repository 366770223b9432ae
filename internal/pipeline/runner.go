// Package pipeline provides end-to-end run orchestration.
// It coordinates: pool resolution → series fetch → analysis → report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/analytics"
	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/fetch"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
	"github.com/marescialloNino/dex-analyzer/internal/storage"
)

// Runner coordinates a full analysis run.
type Runner struct {
	discoverer fetch.PoolDiscoverer
	manager    *fetch.Manager
	poolStore  storage.PoolStore

	chain          domain.Chain
	dex            domain.Dex
	pools          []string
	filter         fetch.PoolFilter
	request        fetch.Request
	analysisConfig analytics.Config

	log zerolog.Logger
}

// Options for creating a Runner.
type Options struct {
	// Manager fetches series for the resolved pools. Required.
	Manager *fetch.Manager

	// Discoverer lists pools when no explicit addresses are pinned.
	// Required unless Pools is set.
	Discoverer fetch.PoolDiscoverer

	// PoolStore persists discovered pools and resolves pinned addresses.
	// Optional.
	PoolStore storage.PoolStore

	// Chain and Dex select the market.
	Chain domain.Chain
	Dex   domain.Dex

	// Pools pins explicit pool addresses instead of discovery.
	Pools []string

	// Filter applies to discovery results.
	Filter fetch.PoolFilter

	// Request is the fetch window and candle interval.
	Request fetch.Request

	// AnalysisConfig parameterizes the analytics run.
	AnalysisConfig analytics.Config
}

// NewRunner creates a pipeline runner.
func NewRunner(opts Options) *Runner {
	return &Runner{
		discoverer:     opts.Discoverer,
		manager:        opts.Manager,
		poolStore:      opts.PoolStore,
		chain:          opts.Chain,
		dex:            opts.Dex,
		pools:          opts.Pools,
		filter:         opts.Filter,
		request:        opts.Request,
		analysisConfig: opts.AnalysisConfig,
		log:            log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pipeline.
// Phases:
//  1. Resolve pools (pinned addresses or discovery)
//  2. Fetch price series for each pool
//  3. Analyze (align, returns, correlation, betas)
func (r *Runner) Run(ctx context.Context) (*domain.AnalysisReport, error) {
	// Phase 1: pool resolution
	start := time.Now()
	pools, err := r.resolvePools(ctx)
	observability.RecordPipelineRun("resolve", runStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("resolve pools: %w", err)
	}
	r.log.Info().Int("pools", len(pools)).Msg("pools resolved")

	// Phase 2: series fetch
	start = time.Now()
	series, fetchExclusions, err := r.manager.FetchAll(ctx, pools, r.request)
	observability.RecordPipelineRun("fetch", runStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	r.log.Info().
		Int("series", len(series)).
		Int("excluded", len(fetchExclusions)).
		Msg("series fetched")

	// Phase 3: analysis
	start = time.Now()
	report, err := analytics.Analyze(series, fetchExclusions, r.analysisConfig)
	observability.RecordPipelineRun("analyze", runStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	for _, excl := range report.Excluded {
		observability.RecordExclusion(string(excl.Reason))
	}
	observability.DefaultMetrics.AssetsAnalyzed.Set(float64(len(report.Matrix.Assets)))
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	r.log.Info().
		Int("assets", len(report.Matrix.Assets)).
		Int("betas", len(report.Betas)).
		Int("excluded", len(report.Excluded)).
		Msg("analysis complete")

	return report, nil
}

func runStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// resolvePools returns the pools to analyze, either the pinned addresses
// or a fresh discovery pass. Discovered pools are persisted to the pool
// store when one is configured.
func (r *Runner) resolvePools(ctx context.Context) ([]domain.Pool, error) {
	if len(r.pools) > 0 {
		return r.resolvePinned(ctx)
	}

	if r.discoverer == nil {
		return nil, fmt.Errorf("no pools pinned and no discoverer configured")
	}

	filter := r.filter
	filter.Chain = r.chain
	filter.Dex = r.dex

	pools, err := r.discoverer.DiscoverPools(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("discovery returned no pools for %s/%s", r.chain, r.dex)
	}

	sort.Slice(pools, func(i, j int) bool {
		if pools[i].TVL != pools[j].TVL {
			return pools[i].TVL > pools[j].TVL
		}
		return pools[i].PoolID < pools[j].PoolID
	})

	if r.poolStore != nil {
		for _, p := range pools {
			if err := r.poolStore.Upsert(ctx, p); err != nil {
				r.log.Warn().Str("pool", p.PoolID).Err(err).Msg("pool registry write failed")
			}
		}
	}

	return pools, nil
}

// resolvePinned looks pinned addresses up in the registry, falling back to
// a minimal pool record when the registry has no entry.
func (r *Runner) resolvePinned(ctx context.Context) ([]domain.Pool, error) {
	pools := make([]domain.Pool, 0, len(r.pools))
	for _, id := range r.pools {
		if r.poolStore != nil {
			p, err := r.poolStore.GetByID(ctx, id)
			if err == nil {
				pools = append(pools, p)
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("lookup pool %s: %w", id, err)
			}
		}
		pools = append(pools, domain.Pool{
			PoolID:    id,
			Chain:     r.chain,
			Dex:       r.dex,
			BaseAsset: id,
		})
	}
	return pools, nil
}
