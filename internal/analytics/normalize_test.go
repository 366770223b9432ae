package analytics

import (
	"errors"
	"testing"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

func TestNormalize_SortsByTimestamp(t *testing.T) {
	s := domain.PriceSeries{
		Pool: domain.Pool{PoolID: "p1", BaseAsset: "JUP"},
		Points: []domain.PricePoint{
			{TimestampMs: 3000, Price: 3.0},
			{TimestampMs: 1000, Price: 1.0},
			{TimestampMs: 2000, Price: 2.0},
		},
	}

	got, err := Normalize(s)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []int64{1000, 2000, 3000}
	for i, ts := range want {
		if got.Points[i].TimestampMs != ts {
			t.Errorf("Point %d: expected ts %d, got %d", i, ts, got.Points[i].TimestampMs)
		}
	}
}

func TestNormalize_DuplicatesKeepLastObserved(t *testing.T) {
	// Duplicate timestamps keep LAST(price) by original fetch order.
	s := domain.PriceSeries{
		Points: []domain.PricePoint{
			{TimestampMs: 1000, Price: 1.0},
			{TimestampMs: 2000, Price: 5.0},
			{TimestampMs: 1000, Price: 1.5},
			{TimestampMs: 1000, Price: 2.0},
		},
	}

	got, err := Normalize(s)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(got.Points) != 2 {
		t.Fatalf("Expected 2 points after dedupe, got %d", len(got.Points))
	}
	if got.Points[0].Price != 2.0 {
		t.Errorf("Expected last-observed price 2.0 at t=1000, got %v", got.Points[0].Price)
	}
}

func TestNormalize_TooShort(t *testing.T) {
	s := domain.PriceSeries{
		Points: []domain.PricePoint{
			{TimestampMs: 1000, Price: 1.0},
			{TimestampMs: 1000, Price: 2.0}, // collapses into one point
		},
	}

	_, err := Normalize(s)
	if !errors.Is(err, ErrMalformedSeries) {
		t.Fatalf("Expected ErrMalformedSeries, got %v", err)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	s := domain.PriceSeries{
		Points: []domain.PricePoint{
			{TimestampMs: 2000, Price: 2.0},
			{TimestampMs: 1000, Price: 1.0},
		},
	}

	if _, err := Normalize(s); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if s.Points[0].TimestampMs != 2000 {
		t.Errorf("Input series mutated: first point ts = %d", s.Points[0].TimestampMs)
	}
}
