package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// AlignOptions configures the alignment engine.
type AlignOptions struct {
	// Resolution is the canonical grid bucket width (e.g. time.Hour).
	Resolution time.Duration

	// OverlapThreshold is the minimum fraction of grid buckets that must
	// contain at least one source point for a series to survive.
	OverlapThreshold float64
}

// Align merges normalized series onto one canonical timestamp grid.
//
// The grid spans [max(series.start), min(series.end)] at the given
// resolution, recomputed as poorly-covered series are excluded, until
// the surviving set is stable. Buckets are filled by last observation
// carried forward; rows where a surviving asset has no prior
// observation at all are dropped to keep the frame rectangular.
//
// Assets are keyed by base symbol. When several pools carry the same
// symbol, the first series in input order is kept and the rest are
// excluded with reason DUPLICATE_ASSET; callers that discover pools
// TVL-sorted thus keep the deepest pool per symbol.
//
// Returns ErrInsufficientOverlap if fewer than 2 assets survive, if
// the reference asset itself is dropped, or if the common range is too
// short to yield at least 2 grid rows.
func Align(series []domain.PriceSeries, referenceAsset string, opts AlignOptions) (*domain.AlignedFrame, []domain.Exclusion, error) {
	resMs := opts.Resolution.Milliseconds()
	if resMs <= 0 {
		return nil, nil, fmt.Errorf("align: non-positive resolution %v", opts.Resolution)
	}

	var excluded []domain.Exclusion

	candidates := make(map[string]domain.PriceSeries, len(series))
	for _, s := range series {
		asset := s.Pool.Asset()
		if held, ok := candidates[asset]; ok {
			excluded = append(excluded, domain.Exclusion{
				Asset:  asset,
				PoolID: s.Pool.PoolID,
				Reason: domain.ReasonDuplicateAsset,
				Detail: fmt.Sprintf("asset already supplied by pool %s", held.Pool.PoolID),
			})
			continue
		}
		candidates[asset] = s
	}

	var grid []int64

	// Iterate to a fixed point: the common range shrinks or grows as
	// series are excluded, which can change coverage fractions.
	for {
		if len(candidates) < 2 {
			return nil, excluded, ErrInsufficientOverlap
		}

		var ok bool
		grid, ok = canonicalGrid(candidates, resMs)
		if !ok {
			return nil, excluded, ErrInsufficientOverlap
		}

		dropped := dropBelowThreshold(candidates, grid, resMs, opts.OverlapThreshold)
		if len(dropped) == 0 {
			break
		}
		for _, asset := range dropped {
			s := candidates[asset]
			excluded = append(excluded, domain.Exclusion{
				Asset:  asset,
				PoolID: s.Pool.PoolID,
				Reason: domain.ReasonInsufficientOverlap,
				Detail: fmt.Sprintf("coverage below threshold %.2f", opts.OverlapThreshold),
			})
			delete(candidates, asset)
		}
		if _, refAlive := candidates[referenceAsset]; !refAlive {
			return nil, excluded, ErrInsufficientOverlap
		}
	}

	frame := fillFrame(candidates, grid, resMs)
	if frame.Rows() < 2 {
		return nil, excluded, ErrInsufficientOverlap
	}
	return frame, excluded, nil
}

// canonicalGrid computes bucket timestamps spanning the time range
// common to all candidate series. Returns false when the common range
// is empty or yields fewer than 2 buckets.
func canonicalGrid(candidates map[string]domain.PriceSeries, resMs int64) ([]int64, bool) {
	first := true
	var maxStart, minEnd int64
	for _, s := range candidates {
		if first || s.StartMs() > maxStart {
			maxStart = s.StartMs()
		}
		if first || s.EndMs() < minEnd {
			minEnd = s.EndMs()
		}
		first = false
	}
	if minEnd < maxStart {
		return nil, false
	}

	gridStart := (maxStart / resMs) * resMs
	var grid []int64
	for t := gridStart; t <= minEnd; t += resMs {
		grid = append(grid, t)
	}
	if len(grid) < 2 {
		return nil, false
	}
	return grid, true
}

// dropBelowThreshold returns assets whose filled-bucket fraction is
// below the overlap threshold. A bucket counts as filled only when at
// least one source point falls inside it; carried-forward values do
// not count toward coverage.
func dropBelowThreshold(candidates map[string]domain.PriceSeries, grid []int64, resMs int64, threshold float64) []string {
	var dropped []string
	for asset, s := range candidates {
		filled := 0
		i := 0
		for _, t := range grid {
			for i < len(s.Points) && s.Points[i].TimestampMs < t {
				i++
			}
			if i < len(s.Points) && s.Points[i].TimestampMs < t+resMs {
				filled++
			}
		}
		if float64(filled)/float64(len(grid)) < threshold {
			dropped = append(dropped, asset)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// fillFrame resamples each surviving series onto the grid via last
// observation carried forward, then deletes rows where any asset still
// has no prior value, keeping the frame rectangular.
func fillFrame(candidates map[string]domain.PriceSeries, grid []int64, resMs int64) *domain.AlignedFrame {
	assets := make([]string, 0, len(candidates))
	for asset := range candidates {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	// raw[asset][row] is the last observation at or before the bucket
	// end; rows with no prior observation stay NaN-free via keep mask.
	filled := make(map[string][]float64, len(assets))
	keep := make([]bool, len(grid))
	for i := range keep {
		keep[i] = true
	}

	for _, asset := range assets {
		s := candidates[asset]
		values := make([]float64, len(grid))
		i := 0
		have := false
		var last float64
		for row, t := range grid {
			for i < len(s.Points) && s.Points[i].TimestampMs < t+resMs {
				last = s.Points[i].Price
				have = true
				i++
			}
			if !have {
				keep[row] = false
				continue
			}
			values[row] = last
		}
		filled[asset] = values
	}

	frame := &domain.AlignedFrame{
		Assets: assets,
		Prices: make(map[string][]float64, len(assets)),
	}
	for row, t := range grid {
		if !keep[row] {
			continue
		}
		frame.TimestampsMs = append(frame.TimestampsMs, t)
		for _, asset := range assets {
			frame.Prices[asset] = append(frame.Prices[asset], filled[asset][row])
		}
	}
	return frame
}
