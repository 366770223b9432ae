package analytics

import (
	"errors"
	"math"
	"testing"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

func TestEstimateBetas_ReferenceRecordIsExact(t *testing.T) {
	returns := []domain.ReturnSeries{
		{Asset: "SOL", Returns: []float64{0.01, -0.02, 0.03}},
		{Asset: "JUP", Returns: []float64{0.02, -0.04, 0.06}},
	}

	records, excluded, err := EstimateBetas(returns, "SOL", BetaOptions{MinimumSamples: 2})
	if err != nil {
		t.Fatalf("EstimateBetas failed: %v", err)
	}
	if len(excluded) != 0 {
		t.Fatalf("Expected no exclusions, got %v", excluded)
	}

	var ref *domain.BetaRecord
	for i := range records {
		if records[i].Asset == "SOL" {
			ref = &records[i]
		}
	}
	if ref == nil {
		t.Fatal("Reference record missing")
	}
	if ref.Beta != 1.0 || ref.Intercept != 0.0 || ref.RSquared != 1.0 {
		t.Errorf("Reference record: beta=%v intercept=%v r2=%v, want exactly 1/0/1",
			ref.Beta, ref.Intercept, ref.RSquared)
	}
	if ref.SampleCount != 3 {
		t.Errorf("Reference sample count = %d, want 3", ref.SampleCount)
	}
}

func TestEstimateBetas_ScaledReturns(t *testing.T) {
	// asset = 2 * ref at every index: beta 2, intercept 0, r² 1.
	ref := []float64{0.01, -0.02, 0.03, 0.005}
	scaled := make([]float64, len(ref))
	for i, v := range ref {
		scaled[i] = 2 * v
	}
	returns := []domain.ReturnSeries{
		{Asset: "SOL", Returns: ref},
		{Asset: "JUP", Returns: scaled},
	}

	records, _, err := EstimateBetas(returns, "SOL", BetaOptions{MinimumSamples: 2})
	if err != nil {
		t.Fatalf("EstimateBetas failed: %v", err)
	}

	for _, rec := range records {
		if rec.Asset != "JUP" {
			continue
		}
		if math.Abs(rec.Beta-2.0) > 1e-12 {
			t.Errorf("Beta = %v, want 2.0", rec.Beta)
		}
		if math.Abs(rec.Intercept) > 1e-12 {
			t.Errorf("Intercept = %v, want 0.0", rec.Intercept)
		}
		if math.Abs(rec.RSquared-1.0) > 1e-12 {
			t.Errorf("RSquared = %v, want 1.0", rec.RSquared)
		}
	}
}

func TestEstimateBetas_MinimumSamplesGate(t *testing.T) {
	returns := []domain.ReturnSeries{
		{Asset: "SOL", Returns: []float64{0.01, -0.02, 0.03, 0.01, -0.01}},
		{Asset: "JUP", Returns: []float64{0.02, -0.01, 0.01, 0.03, -0.02}},
	}

	// 5 samples < 30 default: everything excluded, run still succeeds.
	records, excluded, err := EstimateBetas(returns, "SOL", BetaOptions{})
	if err != nil {
		t.Fatalf("EstimateBetas failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records below default minimum, got %v", records)
	}
	if len(excluded) != 2 {
		t.Fatalf("Expected 2 exclusions, got %v", excluded)
	}
	for _, e := range excluded {
		if e.Reason != domain.ReasonInsufficientSamples {
			t.Errorf("Exclusion %s: reason %s, want INSUFFICIENT_SAMPLES", e.Asset, e.Reason)
		}
	}
}

func TestEstimateBetas_ZeroVarianceAssetExcluded(t *testing.T) {
	returns := []domain.ReturnSeries{
		{Asset: "SOL", Returns: []float64{0.01, -0.02, 0.03}},
		{Asset: "FLAT", Returns: []float64{0, 0, 0}},
	}

	records, excluded, err := EstimateBetas(returns, "SOL", BetaOptions{MinimumSamples: 2})
	if err != nil {
		t.Fatalf("EstimateBetas failed: %v", err)
	}
	if len(records) != 1 || records[0].Asset != "SOL" {
		t.Fatalf("Expected only the reference record, got %v", records)
	}
	if len(excluded) != 1 || excluded[0].Asset != "FLAT" || excluded[0].Reason != domain.ReasonZeroVariance {
		t.Fatalf("Expected FLAT excluded with ZERO_VARIANCE, got %v", excluded)
	}
}

func TestEstimateBetas_DegenerateReference(t *testing.T) {
	returns := []domain.ReturnSeries{
		{Asset: "SOL", Returns: []float64{0, 0, 0}},
		{Asset: "JUP", Returns: []float64{0.02, -0.01, 0.01}},
	}

	_, _, err := EstimateBetas(returns, "SOL", BetaOptions{MinimumSamples: 2})
	if !errors.Is(err, ErrDegenerateReference) {
		t.Fatalf("Expected ErrDegenerateReference, got %v", err)
	}
}

func TestEstimateBetas_ReferenceAbsent(t *testing.T) {
	returns := []domain.ReturnSeries{
		{Asset: "JUP", Returns: []float64{0.02, -0.01, 0.01}},
	}

	_, _, err := EstimateBetas(returns, "SOL", BetaOptions{MinimumSamples: 2})
	if !errors.Is(err, ErrDegenerateReference) {
		t.Fatalf("Expected ErrDegenerateReference, got %v", err)
	}
}
