package domain

// PricePoint is a single observed price for a pool.
type PricePoint struct {
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // non-negative traded price
}

// PriceSeries is an ordered sequence of price points for one pool.
// After normalization timestamps are strictly increasing with no
// duplicates; raw series straight from a fetch source carry no such
// guarantee.
type PriceSeries struct {
	Pool   Pool
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// StartMs returns the timestamp of the first point, or 0 if empty.
// Only meaningful on a normalized series.
func (s PriceSeries) StartMs() int64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[0].TimestampMs
}

// EndMs returns the timestamp of the last point, or 0 if empty.
// Only meaningful on a normalized series.
func (s PriceSeries) EndMs() int64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].TimestampMs
}
