package domain

// AlignedFrame holds price levels for all surviving assets resampled
// onto one canonical timestamp grid. The frame is rectangular: every
// asset has a value in every row.
type AlignedFrame struct {
	TimestampsMs []int64              // bucket timestamps, ascending
	Assets       []string             // surviving asset ids, sorted
	Prices       map[string][]float64 // asset -> prices, len == len(TimestampsMs)
}

// Rows returns the number of grid rows in the frame.
func (f *AlignedFrame) Rows() int {
	return len(f.TimestampsMs)
}

// ReturnSeries is one asset's log-returns over consecutive frame rows.
// Length is always rows(frame) - 1.
type ReturnSeries struct {
	Asset   string
	Returns []float64
}
