// Package reporting serializes analysis reports for hand-off to
// storage or visualization collaborators.
package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// MarshalReport encodes a report as indented JSON. NaN correlation
// cells serialize as the "NaN" sentinel string and survive a round
// trip, so an undefined correlation never collapses into 0.
func MarshalReport(r *domain.AnalysisReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// UnmarshalReport decodes a report produced by MarshalReport.
func UnmarshalReport(data []byte) (*domain.AnalysisReport, error) {
	var r domain.AnalysisReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}
