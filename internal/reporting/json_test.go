package reporting

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

func sampleReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		Matrix: &domain.CorrelationMatrix{
			Assets: []string{"FLAT", "JUP", "SOL"},
			Cells: map[string]map[string]domain.Coefficient{
				"SOL":  {"SOL": 1, "JUP": 0.82, "FLAT": domain.Coefficient(math.NaN())},
				"JUP":  {"JUP": 1, "SOL": 0.82, "FLAT": domain.Coefficient(math.NaN())},
				"FLAT": {"FLAT": 1, "SOL": domain.Coefficient(math.NaN()), "JUP": domain.Coefficient(math.NaN())},
			},
		},
		Betas: []domain.BetaRecord{
			{Asset: "JUP", Beta: 1.4, Intercept: 0.0002, RSquared: 0.67, SampleCount: 168, WindowStartMs: 0, WindowEndMs: 604800000},
			{Asset: "SOL", Beta: 1, Intercept: 0, RSquared: 1, SampleCount: 168, WindowStartMs: 0, WindowEndMs: 604800000},
		},
		Excluded: []domain.Exclusion{
			{Asset: "FLAT", Reason: domain.ReasonZeroVariance, Detail: "constant returns"},
		},
		Diagnostics: map[string][]string{"FLAT": {"ZERO_VARIANCE_RETURNS"}},
		Metadata: domain.ReportMetadata{
			ReferenceAsset: "SOL",
			WindowStartMs:  0,
			WindowEndMs:    604800000,
			Resolution:     "1h0m0s",
			AlignedRows:    169,
			GeneratedAtMs:  1700000000000,
		},
	}
}

func TestReportRoundTrip_PreservesNaN(t *testing.T) {
	original := sampleReport()

	data, err := MarshalReport(original)
	require.NoError(t, err)

	// The sentinel must appear as a distinguishable string, never 0.
	assert.Contains(t, string(data), `"NaN"`)

	decoded, err := UnmarshalReport(data)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(decoded.Matrix.At("SOL", "FLAT")), "NaN cell must survive round trip")
	assert.NotEqual(t, 0.0, decoded.Matrix.At("SOL", "FLAT"))
	assert.Equal(t, 0.82, decoded.Matrix.At("SOL", "JUP"))
	assert.Equal(t, original.Betas, decoded.Betas)
	assert.Equal(t, original.Excluded, decoded.Excluded)
	assert.Equal(t, original.Metadata, decoded.Metadata)
}

func TestRenderBetaCSV(t *testing.T) {
	out := RenderBetaCSV(sampleReport())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "asset,beta,intercept,r_squared,sample_count,window_start_ms,window_end_ms", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "JUP,1.400000,"))
	assert.True(t, strings.HasPrefix(lines[2], "SOL,1.000000,"))
}

func TestRenderMatrixCSV_NaNSentinel(t *testing.T) {
	out := RenderMatrixCSV(sampleReport())

	assert.Contains(t, out, "asset,FLAT,JUP,SOL")
	assert.Contains(t, out, "FLAT,1.000000,NaN,NaN")
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(sampleReport())

	assert.Contains(t, out, "# Correlation & Beta Report")
	assert.Contains(t, out, "## Correlation Matrix")
	assert.Contains(t, out, "## Beta vs SOL")
	assert.Contains(t, out, "## Excluded Assets")
	assert.Contains(t, out, "ZERO_VARIANCE")
	assert.Contains(t, out, "NaN")
}
