package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Coefficient is a correlation coefficient cell that survives JSON
// round trips even when undefined: NaN serializes as the string "NaN"
// rather than a number, so a deserialized report can still distinguish
// an undefined correlation from 0.
type Coefficient float64

// IsNaN reports whether the coefficient is undefined.
func (c Coefficient) IsNaN() bool {
	return math.IsNaN(float64(c))
}

// MarshalJSON encodes NaN as the sentinel string "NaN".
func (c Coefficient) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(c)) {
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(float64(c), 'g', -1, 64)), nil
}

// UnmarshalJSON accepts either a JSON number or the "NaN" sentinel.
func (c *Coefficient) UnmarshalJSON(data []byte) error {
	if string(data) == `"NaN"` {
		*c = Coefficient(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("coefficient: %w", err)
	}
	*c = Coefficient(v)
	return nil
}

// CorrelationMatrix is the symmetric pairwise Pearson correlation
// matrix over asset returns. Diagonal cells are exactly 1.0; cells for
// zero-variance pairs are NaN.
type CorrelationMatrix struct {
	Assets []string                          `json:"assets"`
	Cells  map[string]map[string]Coefficient `json:"cells"`
}

// At returns the correlation between two assets. Returns NaN for
// assets absent from the matrix.
func (m *CorrelationMatrix) At(a, b string) float64 {
	row, ok := m.Cells[a]
	if !ok {
		return math.NaN()
	}
	v, ok := row[b]
	if !ok {
		return math.NaN()
	}
	return float64(v)
}

// BetaRecord is the OLS regression of one asset's returns against the
// reference asset's returns over the aligned window.
type BetaRecord struct {
	Asset         string  `json:"asset"`
	Beta          float64 `json:"beta"`
	Intercept     float64 `json:"intercept"`
	RSquared      float64 `json:"r_squared"`
	SampleCount   int     `json:"sample_count"`
	WindowStartMs int64   `json:"window_start_ms"`
	WindowEndMs   int64   `json:"window_end_ms"`
}

// ReportMetadata describes the run that produced a report.
type ReportMetadata struct {
	ReferenceAsset string `json:"reference_asset"`
	WindowStartMs  int64  `json:"window_start_ms"`
	WindowEndMs    int64  `json:"window_end_ms"`
	Resolution     string `json:"resolution"` // duration string, e.g. "1h"
	AlignedRows    int    `json:"aligned_rows"`
	GeneratedAtMs  int64  `json:"generated_at_ms"`
}

// AnalysisReport is the immutable aggregate produced by one pipeline
// run. Every asset supplied to the run either appears in both the
// matrix and the beta list, or is listed in Excluded with a reason.
type AnalysisReport struct {
	Matrix      *CorrelationMatrix  `json:"correlation_matrix"`
	Betas       []BetaRecord        `json:"beta_records"`
	Excluded    []Exclusion         `json:"excluded_assets"`
	Diagnostics map[string][]string `json:"diagnostics,omitempty"` // asset -> flags
	Metadata    ReportMetadata      `json:"metadata"`
}
