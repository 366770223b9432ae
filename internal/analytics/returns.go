package analytics

import (
	"fmt"
	"math"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// Returns converts aligned price levels into per-asset log-return
// series: return[t] = ln(price[t] / price[t-1]).
//
// An asset with a non-positive price anywhere in the frame has an
// undefined log-return; that asset alone is excluded with reason
// NON_POSITIVE_PRICE, and the rest of the run continues.
func Returns(frame *domain.AlignedFrame) ([]domain.ReturnSeries, []domain.Exclusion) {
	var out []domain.ReturnSeries
	var excluded []domain.Exclusion

	for _, asset := range frame.Assets {
		prices := frame.Prices[asset]
		returns := make([]float64, 0, len(prices)-1)
		bad := -1
		for i := 1; i < len(prices); i++ {
			if prices[i-1] <= 0 || prices[i] <= 0 {
				bad = i
				break
			}
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
		if bad >= 0 {
			excluded = append(excluded, domain.Exclusion{
				Asset:  asset,
				Reason: domain.ReasonNonPositivePrice,
				Detail: fmt.Sprintf("non-positive price at row %d (t=%d)", bad, frame.TimestampsMs[bad]),
			})
			continue
		}
		out = append(out, domain.ReturnSeries{Asset: asset, Returns: returns})
	}

	return out, excluded
}
