package research

import "github.com/suplementor/backend/internal/domain"

// evidenceResponse is the research API payload
type evidenceResponse struct {
	StudyCount    int    `json:"studyCount"`
	EvidenceLevel string `json:"evidenceLevel"`
}

// mapToEvidenceSummary converts the API payload to the domain summary.
// Negative counts become zero; an unrecognized level is dropped so callers
// keep their own.
func mapToEvidenceSummary(resp *evidenceResponse) *domain.EvidenceSummary {
	summary := &domain.EvidenceSummary{StudyCount: resp.StudyCount}
	if summary.StudyCount < 0 {
		summary.StudyCount = 0
	}
	if level, ok := domain.ParseEvidenceLevel(resp.EvidenceLevel); ok {
		summary.EvidenceLevel = level
	}
	return summary
}
