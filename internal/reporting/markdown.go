package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *domain.AnalysisReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Correlation & Beta Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n",
		time.UnixMilli(r.Metadata.GeneratedAtMs).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Reference: %s | Resolution: %s | Aligned rows: %d\n\n",
		r.Metadata.ReferenceAsset, r.Metadata.Resolution, r.Metadata.AlignedRows))
	sb.WriteString(fmt.Sprintf("Window: %s .. %s\n\n",
		time.UnixMilli(r.Metadata.WindowStartMs).UTC().Format(time.RFC3339),
		time.UnixMilli(r.Metadata.WindowEndMs).UTC().Format(time.RFC3339)))

	// Correlation matrix
	sb.WriteString("## Correlation Matrix\n\n")
	if len(r.Matrix.Assets) > 0 {
		sb.WriteString("| |")
		for _, a := range r.Matrix.Assets {
			sb.WriteString(fmt.Sprintf(" %s |", a))
		}
		sb.WriteString("\n|---|")
		for range r.Matrix.Assets {
			sb.WriteString("---|")
		}
		sb.WriteString("\n")
		for _, a := range r.Matrix.Assets {
			sb.WriteString(fmt.Sprintf("| %s |", a))
			for _, b := range r.Matrix.Assets {
				c := r.Matrix.At(a, b)
				if math.IsNaN(c) {
					sb.WriteString(" NaN |")
				} else {
					sb.WriteString(fmt.Sprintf(" %.4f |", c))
				}
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No surviving assets.\n")
	}
	sb.WriteString("\n")

	// Beta records
	sb.WriteString(fmt.Sprintf("## Beta vs %s\n\n", r.Metadata.ReferenceAsset))
	if len(r.Betas) > 0 {
		sb.WriteString("| Asset | Beta | Intercept | R² | Samples |\n")
		sb.WriteString("|-------|------|-----------|----|---------|\n")
		for _, b := range r.Betas {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.6f | %.4f | %d |\n",
				b.Asset, b.Beta, b.Intercept, b.RSquared, b.SampleCount))
		}
	} else {
		sb.WriteString("No beta records available.\n")
	}
	sb.WriteString("\n")

	// Exclusions (always shown if present)
	if len(r.Excluded) > 0 {
		sb.WriteString("## Excluded Assets\n\n")
		sb.WriteString("| Asset | Reason | Detail |\n")
		sb.WriteString("|-------|--------|--------|\n")
		for _, e := range r.Excluded {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", e.Asset, e.Reason, e.Detail))
		}
		sb.WriteString("\n")
	}

	// Diagnostics
	if len(r.Diagnostics) > 0 {
		sb.WriteString("## Diagnostics\n\n")
		for _, a := range r.Matrix.Assets {
			if flags, ok := r.Diagnostics[a]; ok {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", a, strings.Join(flags, ", ")))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
