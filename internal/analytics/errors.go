package analytics

import "errors"

// Errors returned by the analytics pipeline.
//
// Per-asset failures (a short series, a non-positive price) never
// surface as errors: the asset is excluded and recorded in the report.
// Only conditions that make the whole report meaningless are fatal.
var (
	// ErrMalformedSeries is returned when a single series has fewer than
	// 2 usable points after normalization. Callers exclude the asset and
	// continue the run.
	ErrMalformedSeries = errors.New("malformed series: fewer than 2 points remain")

	// ErrInsufficientOverlap is returned when fewer than 2 assets
	// (including the reference) share usable overlapping history. Fatal
	// for the run.
	ErrInsufficientOverlap = errors.New("insufficient overlap: fewer than 2 assets share usable history")

	// ErrDegenerateReference is returned when the reference asset's
	// returns are unusable (zero variance, or excluded before the beta
	// stage). Beta is undefined for every asset, so the run fails.
	ErrDegenerateReference = errors.New("degenerate reference: reference returns unusable for regression")
)
