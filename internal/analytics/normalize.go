package analytics

import (
	"sort"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Normalize returns a copy of the raw series satisfying the
// strict-monotonic invariant: timestamps ascending, no duplicates.
//
// Duplicate timestamps keep the last-observed value by original fetch
// order. Gaps are not filled here; gap handling happens during
// alignment, which sees all series at once.
//
// Returns ErrMalformedSeries if fewer than 2 points remain, since no
// return can be computed from such a series.
func Normalize(s domain.PriceSeries) (domain.PriceSeries, error) {
	// LAST(price) per timestamp, by original order.
	byTS := make(map[int64]float64, len(s.Points))
	for _, p := range s.Points {
		byTS[p.TimestampMs] = p.Price
	}

	points := make([]domain.PricePoint, 0, len(byTS))
	for ts, price := range byTS {
		points = append(points, domain.PricePoint{TimestampMs: ts, Price: price})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})

	if len(points) < 2 {
		return domain.PriceSeries{}, ErrMalformedSeries
	}

	return domain.PriceSeries{Pool: s.Pool, Points: points}, nil
}
