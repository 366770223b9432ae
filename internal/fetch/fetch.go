// Package fetch retrieves pool metadata and price histories from external
// market data providers. Sources return raw, possibly unordered series;
// normalization happens downstream in the analytics package.
package fetch

import (
	"context"
	"errors"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Sentinel errors returned by sources and the fetch manager.
var (
	// ErrAllPoolsFailed indicates no requested pool produced a series.
	ErrAllPoolsFailed = errors.New("all pools failed to fetch")

	// ErrUnsupportedInterval indicates the provider cannot serve the
	// requested candle interval.
	ErrUnsupportedInterval = errors.New("unsupported candle interval")

	// ErrNoData indicates the provider returned an empty history for the
	// requested window.
	ErrNoData = errors.New("no price data for requested window")
)

// Request describes a price history window.
type Request struct {
	// IntervalSeconds is the candle interval (e.g. 600 for 10 minutes).
	IntervalSeconds int
	// StartMs and EndMs bound the window in epoch milliseconds, inclusive.
	StartMs int64
	EndMs   int64
}

// PriceSource provides raw price history for a pool.
type PriceSource interface {
	// FetchSeries returns price points for the pool within the request
	// window. Points may be unordered and may contain duplicates; callers
	// normalize before analysis.
	FetchSeries(ctx context.Context, pool domain.Pool, req Request) (domain.PriceSeries, error)
}

// PoolFilter restricts pool discovery results.
type PoolFilter struct {
	Chain  domain.Chain
	Dex    domain.Dex
	MinTVL float64
	// ExcludePivots drops pools whose base or quote symbol is a pivot
	// token (SOL, ETH and friends) for the chain.
	ExcludePivots bool
	// ExcludeStables drops pools containing a stablecoin leg.
	ExcludeStables bool
	// UtilityPairs keeps only pools where both legs are pivot tokens.
	// Overrides ExcludePivots and ExcludeStables.
	UtilityPairs bool
}

// PoolDiscoverer lists liquidity pools for a chain and dex.
type PoolDiscoverer interface {
	DiscoverPools(ctx context.Context, filter PoolFilter) ([]domain.Pool, error)
}

// Pivot and stablecoin symbol sets per chain, used by discovery filters.
var (
	pivotTokens = map[domain.Chain]map[string]bool{
		domain.ChainSolana:   {"SOL": true, "JUP": true, "RAY": true, "JLP": true},
		domain.ChainEthereum: {"ETH": true, "WETH": true, "UNI": true},
	}

	stablecoins = map[domain.Chain]map[string]bool{
		domain.ChainSolana:   {"USDC": true, "USDT": true, "DAI": true, "USDE": true},
		domain.ChainEthereum: {"USDC": true, "USDT": true, "DAI": true, "USDE": true},
	}
)

// isPivot reports whether symbol is a pivot token on the chain.
func isPivot(chain domain.Chain, symbol string) bool {
	return pivotTokens[chain][symbol]
}

// isStablecoin reports whether symbol is a stablecoin on the chain.
func isStablecoin(chain domain.Chain, symbol string) bool {
	return stablecoins[chain][symbol]
}

// matchesFilter applies TVL and symbol filters to a discovered pool.
func matchesFilter(p domain.Pool, f PoolFilter) bool {
	if p.TVL < f.MinTVL {
		return false
	}
	if f.UtilityPairs {
		return isPivot(p.Chain, p.BaseAsset) && isPivot(p.Chain, p.QuoteAsset)
	}
	if f.ExcludePivots && (isPivot(p.Chain, p.BaseAsset) || isPivot(p.Chain, p.QuoteAsset)) {
		return false
	}
	if f.ExcludeStables && (isStablecoin(p.Chain, p.BaseAsset) || isStablecoin(p.Chain, p.QuoteAsset)) {
		return false
	}
	return true
}
