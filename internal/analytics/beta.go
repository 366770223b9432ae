package analytics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// DefaultMinimumSamples is the default floor on overlapping returns
// required for a stable beta estimate.
const DefaultMinimumSamples = 30

// BetaOptions configures the beta estimator.
type BetaOptions struct {
	// MinimumSamples is the minimum number of overlapping returns
	// required per asset. Zero means DefaultMinimumSamples.
	MinimumSamples int

	// WindowStartMs / WindowEndMs stamp each record with the aligned
	// window the estimate covers.
	WindowStartMs int64
	WindowEndMs   int64
}

// EstimateBetas regresses each asset's returns against the reference
// asset's returns: beta = cov(asset, ref) / var(ref), with intercept
// and R-squared = correlation².
//
// The reference's own record is exactly {beta: 1, intercept: 0,
// r_squared: 1}, never recomputed. Assets with too few samples or
// zero-variance returns are excluded per-asset.
//
// Returns ErrDegenerateReference when the reference series is absent
// from the return set or has zero variance; beta is then meaningless
// for every asset and the run fails.
func EstimateBetas(returns []domain.ReturnSeries, referenceAsset string, opts BetaOptions) ([]domain.BetaRecord, []domain.Exclusion, error) {
	minSamples := opts.MinimumSamples
	if minSamples == 0 {
		minSamples = DefaultMinimumSamples
	}

	var ref []float64
	for _, r := range returns {
		if r.Asset == referenceAsset {
			ref = r.Returns
			break
		}
	}
	if ref == nil {
		return nil, nil, fmt.Errorf("reference %q not in return set: %w", referenceAsset, ErrDegenerateReference)
	}
	if stat.Variance(ref, nil) == 0 {
		return nil, nil, fmt.Errorf("reference %q has zero-variance returns: %w", referenceAsset, ErrDegenerateReference)
	}

	refMean := stat.Mean(ref, nil)
	refVar := stat.Variance(ref, nil)

	var records []domain.BetaRecord
	var excluded []domain.Exclusion

	for _, r := range returns {
		n := len(r.Returns)
		if n < minSamples {
			excluded = append(excluded, domain.Exclusion{
				Asset:  r.Asset,
				Reason: domain.ReasonInsufficientSamples,
				Detail: fmt.Sprintf("%d samples, need %d", n, minSamples),
			})
			continue
		}

		if r.Asset == referenceAsset {
			records = append(records, domain.BetaRecord{
				Asset:         r.Asset,
				Beta:          1.0,
				Intercept:     0.0,
				RSquared:      1.0,
				SampleCount:   n,
				WindowStartMs: opts.WindowStartMs,
				WindowEndMs:   opts.WindowEndMs,
			})
			continue
		}

		if stat.Variance(r.Returns, nil) == 0 {
			excluded = append(excluded, domain.Exclusion{
				Asset:  r.Asset,
				Reason: domain.ReasonZeroVariance,
				Detail: "constant returns, r_squared undefined",
			})
			continue
		}

		beta := stat.Covariance(r.Returns, ref, nil) / refVar
		intercept := stat.Mean(r.Returns, nil) - beta*refMean
		corr := stat.Correlation(r.Returns, ref, nil)

		records = append(records, domain.BetaRecord{
			Asset:         r.Asset,
			Beta:          beta,
			Intercept:     intercept,
			RSquared:      corr * corr,
			SampleCount:   n,
			WindowStartMs: opts.WindowStartMs,
			WindowEndMs:   opts.WindowEndMs,
		})
	}

	return records, excluded, nil
}
