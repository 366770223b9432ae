package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Diagnostic flags attached to assets in the report.
const (
	FlagZeroVariance = "ZERO_VARIANCE_RETURNS"
)

// Correlate computes the symmetric pairwise Pearson correlation matrix
// over the aligned return series.
//
// The diagonal is fixed at exactly 1.0 without computing it. A pair
// where either series has zero variance gets a NaN cell rather than an
// error; both offending assets are flagged ZERO_VARIANCE_RETURNS in
// the returned diagnostics.
func Correlate(returns []domain.ReturnSeries) (*domain.CorrelationMatrix, map[string][]string) {
	assets := make([]string, len(returns))
	byAsset := make(map[string][]float64, len(returns))
	for i, r := range returns {
		assets[i] = r.Asset
		byAsset[r.Asset] = r.Returns
	}

	diagnostics := make(map[string][]string)
	degenerate := make(map[string]bool, len(assets))
	for _, a := range assets {
		if stat.Variance(byAsset[a], nil) == 0 {
			degenerate[a] = true
			diagnostics[a] = append(diagnostics[a], FlagZeroVariance)
		}
	}

	cells := make(map[string]map[string]domain.Coefficient, len(assets))
	for _, a := range assets {
		cells[a] = make(map[string]domain.Coefficient, len(assets))
		cells[a][a] = 1.0
	}
	for i, a := range assets {
		for _, b := range assets[i+1:] {
			var c float64
			if degenerate[a] || degenerate[b] {
				c = math.NaN()
			} else {
				c = stat.Correlation(byAsset[a], byAsset[b], nil)
			}
			cells[a][b] = domain.Coefficient(c)
			cells[b][a] = domain.Coefficient(c)
		}
	}

	if len(diagnostics) == 0 {
		diagnostics = nil
	}
	return &domain.CorrelationMatrix{Assets: assets, Cells: cells}, diagnostics
}
