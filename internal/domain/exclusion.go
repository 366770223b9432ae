package domain

// ExclusionReason classifies why an asset was dropped from a run.
type ExclusionReason string

const (
	// ReasonMalformedSeries: the raw series had fewer than 2 usable points.
	ReasonMalformedSeries ExclusionReason = "MALFORMED_SERIES"

	// ReasonInsufficientOverlap: the series covered too small a fraction
	// of the canonical grid.
	ReasonInsufficientOverlap ExclusionReason = "INSUFFICIENT_OVERLAP"

	// ReasonNonPositivePrice: a log-return was undefined because a price
	// level was zero or negative.
	ReasonNonPositivePrice ExclusionReason = "NON_POSITIVE_PRICE"

	// ReasonInsufficientSamples: too few overlapping returns for a stable
	// beta estimate.
	ReasonInsufficientSamples ExclusionReason = "INSUFFICIENT_SAMPLES"

	// ReasonZeroVariance: the asset's returns have zero variance, so
	// correlation and R-squared against it are undefined.
	ReasonZeroVariance ExclusionReason = "ZERO_VARIANCE"

	// ReasonPoolUnavailable: the fetch collaborator could not supply the
	// pool's price history.
	ReasonPoolUnavailable ExclusionReason = "POOL_UNAVAILABLE"

	// ReasonDuplicateAsset: another pool already supplies this base
	// asset's series; one symbol maps to at most one series per run.
	ReasonDuplicateAsset ExclusionReason = "DUPLICATE_ASSET"
)

// String returns the string representation of ExclusionReason.
func (r ExclusionReason) String() string {
	return string(r)
}

// Exclusion records one asset dropped from a pipeline run, with the
// stage-specific reason. Exclusions are the primary diagnostic surface
// of a successful run.
type Exclusion struct {
	Asset  string          `json:"asset"`
	PoolID string          `json:"pool_id,omitempty"`
	Reason ExclusionReason `json:"reason"`
	Detail string          `json:"detail,omitempty"`
}
