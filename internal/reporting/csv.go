package reporting

import (
	"fmt"
	"strings"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// RenderBetaCSV renders beta records as CSV string.
func RenderBetaCSV(r *domain.AnalysisReport) string {
	var sb strings.Builder

	sb.WriteString("asset,beta,intercept,r_squared,sample_count,window_start_ms,window_end_ms\n")
	for _, b := range r.Betas {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.8f,%.6f,%d,%d,%d\n",
			b.Asset,
			b.Beta,
			b.Intercept,
			b.RSquared,
			b.SampleCount,
			b.WindowStartMs,
			b.WindowEndMs,
		))
	}

	return sb.String()
}

// RenderMatrixCSV renders the correlation matrix as CSV string, one
// row per asset. Undefined cells render as "NaN".
func RenderMatrixCSV(r *domain.AnalysisReport) string {
	var sb strings.Builder

	sb.WriteString("asset")
	for _, a := range r.Matrix.Assets {
		sb.WriteString("," + a)
	}
	sb.WriteString("\n")

	for _, a := range r.Matrix.Assets {
		sb.WriteString(a)
		for _, b := range r.Matrix.Assets {
			c := r.Matrix.At(a, b)
			if c != c { // NaN
				sb.WriteString(",NaN")
			} else {
				sb.WriteString(fmt.Sprintf(",%.6f", c))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
