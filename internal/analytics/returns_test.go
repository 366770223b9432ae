package analytics

import (
	"math"
	"testing"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

func TestReturns_LogReturns(t *testing.T) {
	frame := &domain.AlignedFrame{
		TimestampsMs: []int64{0, hourMs, 2 * hourMs},
		Assets:       []string{"SOL"},
		Prices:       map[string][]float64{"SOL": {100, 110, 99}},
	}

	returns, excluded := Returns(frame)
	if len(excluded) != 0 {
		t.Fatalf("Expected no exclusions, got %v", excluded)
	}
	if len(returns) != 1 {
		t.Fatalf("Expected 1 return series, got %d", len(returns))
	}

	got := returns[0].Returns
	if len(got) != 2 {
		t.Fatalf("Expected rows-1 = 2 returns, got %d", len(got))
	}
	want := []float64{math.Log(110.0 / 100.0), math.Log(99.0 / 110.0)}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("Return %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestReturns_NonPositivePriceExcludesSingleAsset(t *testing.T) {
	frame := &domain.AlignedFrame{
		TimestampsMs: []int64{0, hourMs, 2 * hourMs},
		Assets:       []string{"BAD", "SOL"},
		Prices: map[string][]float64{
			"BAD": {100, 0, 120},
			"SOL": {100, 110, 120},
		},
	}

	returns, excluded := Returns(frame)

	if len(excluded) != 1 || excluded[0].Asset != "BAD" || excluded[0].Reason != domain.ReasonNonPositivePrice {
		t.Fatalf("Expected BAD excluded with NON_POSITIVE_PRICE, got %v", excluded)
	}
	if len(returns) != 1 || returns[0].Asset != "SOL" {
		t.Fatalf("Expected only SOL to survive, got %v", returns)
	}
}
