// Package analytics implements the return alignment and
// correlation/beta pipeline over already-fetched pool price series.
//
// The pipeline is a pure, single-pass batch computation: normalize →
// align → log-returns → {correlation, beta} → report. Each stage
// returns new values rather than mutating inputs, so concurrent runs
// over different asset sets need no locking.
package analytics

import (
	"fmt"
	"time"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Config is the immutable per-run configuration of the analytics core.
type Config struct {
	// ReferenceAsset is the anchor symbol for beta regression. Exactly
	// one input series must carry it.
	ReferenceAsset string

	// Resolution is the canonical grid bucket width.
	Resolution time.Duration

	// OverlapThreshold is the minimum fraction of grid buckets a series
	// must cover to survive alignment, in [0, 1].
	OverlapThreshold float64

	// MinimumSamples gates beta estimation; zero means
	// DefaultMinimumSamples.
	MinimumSamples int

	// Clock stamps the report's GeneratedAtMs. Nil means time.Now.
	// Tests inject a fixed clock for deterministic output.
	Clock func() time.Time
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.ReferenceAsset == "" {
		return fmt.Errorf("config: reference asset required")
	}
	if c.Resolution <= 0 {
		return fmt.Errorf("config: non-positive resolution %v", c.Resolution)
	}
	if c.OverlapThreshold < 0 || c.OverlapThreshold > 1 {
		return fmt.Errorf("config: overlap threshold %v outside [0, 1]", c.OverlapThreshold)
	}
	if c.MinimumSamples < 0 {
		return fmt.Errorf("config: negative minimum samples %d", c.MinimumSamples)
	}
	return nil
}

// Analyze runs the full pipeline over raw price series.
//
// priorExclusions carries per-pool fetch failures recorded by the
// caller, so the final report is complete: every asset either made it
// into the matrix and beta list or is listed with a reason.
//
// Fatal errors are ErrInsufficientOverlap and ErrDegenerateReference;
// everything else is recovered per-asset.
func Analyze(series []domain.PriceSeries, priorExclusions []domain.Exclusion, cfg Config) (*domain.AnalysisReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	excluded := make([]domain.Exclusion, len(priorExclusions))
	copy(excluded, priorExclusions)

	// Stage 1: per-series normalization. A malformed series drops just
	// that asset.
	normalized := make([]domain.PriceSeries, 0, len(series))
	for _, s := range series {
		ns, err := Normalize(s)
		if err != nil {
			excluded = append(excluded, domain.Exclusion{
				Asset:  s.Pool.Asset(),
				PoolID: s.Pool.PoolID,
				Reason: domain.ReasonMalformedSeries,
				Detail: fmt.Sprintf("%d raw points", len(s.Points)),
			})
			continue
		}
		normalized = append(normalized, ns)
	}

	// Stage 2: alignment onto the canonical grid.
	frame, alignExcluded, err := Align(normalized, cfg.ReferenceAsset, AlignOptions{
		Resolution:       cfg.Resolution,
		OverlapThreshold: cfg.OverlapThreshold,
	})
	excluded = append(excluded, alignExcluded...)
	if err != nil {
		return nil, err
	}

	// Stage 3: log-returns.
	returns, returnExcluded := Returns(frame)
	excluded = append(excluded, returnExcluded...)

	refSurvived := false
	for _, r := range returns {
		if r.Asset == cfg.ReferenceAsset {
			refSurvived = true
			break
		}
	}
	if !refSurvived {
		return nil, fmt.Errorf("reference %q dropped during return transform: %w", cfg.ReferenceAsset, ErrDegenerateReference)
	}

	// Stages 4+5 run independently on the same return data.
	matrix, diagnostics := Correlate(returns)

	windowStart := frame.TimestampsMs[0]
	windowEnd := frame.TimestampsMs[frame.Rows()-1]
	betas, betaExcluded, err := EstimateBetas(returns, cfg.ReferenceAsset, BetaOptions{
		MinimumSamples: cfg.MinimumSamples,
		WindowStartMs:  windowStart,
		WindowEndMs:    windowEnd,
	})
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, betaExcluded...)

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	meta := domain.ReportMetadata{
		ReferenceAsset: cfg.ReferenceAsset,
		WindowStartMs:  windowStart,
		WindowEndMs:    windowEnd,
		Resolution:     cfg.Resolution.String(),
		AlignedRows:    frame.Rows(),
		GeneratedAtMs:  now().UnixMilli(),
	}
	return AssembleReport(matrix, betas, excluded, diagnostics, meta), nil
}
