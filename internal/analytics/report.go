package analytics

import (
	"sort"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
)

// AssembleReport packages the matrix, beta records, exclusions, and
// diagnostics into one AnalysisReport. It performs no computation; its
// contract is completeness (every surviving asset appears in both the
// matrix and the beta list, or in Excluded with a reason) and
// immutability of the returned value.
func AssembleReport(matrix *domain.CorrelationMatrix, betas []domain.BetaRecord, excluded []domain.Exclusion, diagnostics map[string][]string, meta domain.ReportMetadata) *domain.AnalysisReport {
	sortedBetas := make([]domain.BetaRecord, len(betas))
	copy(sortedBetas, betas)
	sort.Slice(sortedBetas, func(i, j int) bool {
		return sortedBetas[i].Asset < sortedBetas[j].Asset
	})

	sortedExcl := make([]domain.Exclusion, len(excluded))
	copy(sortedExcl, excluded)
	sort.Slice(sortedExcl, func(i, j int) bool {
		if sortedExcl[i].Asset != sortedExcl[j].Asset {
			return sortedExcl[i].Asset < sortedExcl[j].Asset
		}
		return sortedExcl[i].Reason < sortedExcl[j].Reason
	})

	return &domain.AnalysisReport{
		Matrix:      matrix,
		Betas:       sortedBetas,
		Excluded:    sortedExcl,
		Diagnostics: diagnostics,
		Metadata:    meta,
	}
}
