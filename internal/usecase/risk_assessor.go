package usecase

import (
	"fmt"

	"github.com/suplementor/backend/internal/domain"
)

// Risk thresholds
const (
	highRiskMajorCount        = 2 // more than this many major pairs is high
	moderateRiskModerateCount = 3 // more than this many moderate pairs is moderate
)

// AssessRisk reduces a set of pairs to one verdict. Adding a pair never
// lowers the verdict.
func AssessRisk(pairs []domain.InteractionPair) domain.RiskAssessment {
	var contraindicated, major, moderate, highRisk int
	var separation, adjustment bool

	assessment := domain.RiskAssessment{
		RiskFactors:          []string{},
		Contraindications:    []string{},
		MitigationStrategies: []string{},
	}

	for _, p := range pairs {
		switch p.Severity {
		case domain.SeverityContraindicated:
			contraindicated++
			assessment.Contraindications = append(assessment.Contraindications,
				fmt.Sprintf("%s + %s: %s", p.ItemA, p.ItemB, p.Mechanism))
		case domain.SeverityMajor:
			major++
		case domain.SeverityModerate:
			moderate++
		}
		if p.Severity.HighRisk() {
			highRisk++
		}
		separation = separation || p.Timing.SeparationRequired
		adjustment = adjustment || p.DosageImpact.RequiresAdjustment
	}

	switch {
	case contraindicated > 0:
		assessment.OverallRisk = domain.RiskVeryHigh
	case major > highRiskMajorCount:
		assessment.OverallRisk = domain.RiskHigh
	case major > 0 || moderate > moderateRiskModerateCount:
		assessment.OverallRisk = domain.RiskModerate
	default:
		assessment.OverallRisk = domain.RiskLow
	}

	if highRisk > 0 {
		assessment.RiskFactors = append(assessment.RiskFactors, fmt.Sprintf("%d high-risk interactions", highRisk))
	}
	if moderate > 0 {
		assessment.RiskFactors = append(assessment.RiskFactors, fmt.Sprintf("%d moderate interactions", moderate))
	}

	if separation {
		assessment.MitigationStrategies = append(assessment.MitigationStrategies, "Time separation of supplement intake")
	}
	if adjustment {
		assessment.MitigationStrategies = append(assessment.MitigationStrategies, "Supplement dose adjustments")
	}

	return assessment
}

// BuildInteractionRecommendations derives actionable steps from the pairs
func BuildInteractionRecommendations(pairs []domain.InteractionPair) []domain.InteractionRecommendation {
	var avoid, separate, adjust, monitor bool
	for _, p := range pairs {
		avoid = avoid || p.Severity == domain.SeverityContraindicated
		separate = separate || p.Timing.SeparationRequired
		adjust = adjust || p.DosageImpact.RequiresAdjustment
		monitor = monitor || len(p.Monitoring) > 0
	}

	recs := []domain.InteractionRecommendation{}
	if avoid {
		recs = append(recs, domain.InteractionRecommendation{
			Type:           "avoidance",
			Priority:       domain.PriorityHigh,
			Recommendation: "Do not combine contraindicated supplements",
			Rationale:      "At least one combination carries a contraindicated interaction",
			Steps: []string{
				"Drop one item of each contraindicated pair",
				"Consult a healthcare provider before resuming",
			},
		})
	}
	if separate {
		recs = append(recs, domain.InteractionRecommendation{
			Type:           "timing",
			Priority:       domain.PriorityHigh,
			Recommendation: "Separate supplement intake by recommended time intervals",
			Rationale:      "Prevents absorption interference and reduces interaction risk",
			Steps: []string{
				"Create a supplement schedule",
				"Set reminders for proper timing",
				"Monitor for any adverse effects",
			},
		})
	}
	if adjust {
		recs = append(recs, domain.InteractionRecommendation{
			Type:           "dosage",
			Priority:       domain.PriorityMedium,
			Recommendation: "Review doses of interacting supplements",
			Rationale:      "Some combinations change the effective dose",
			Steps: []string{
				"Start with the lower end of the therapeutic range",
				"Increase gradually while tracking effects",
			},
		})
	}
	if monitor {
		recs = append(recs, domain.InteractionRecommendation{
			Type:           "monitoring",
			Priority:       domain.PriorityMedium,
			Recommendation: "Regular monitoring of relevant biomarkers is recommended",
			Rationale:      "Early detection of potential adverse effects",
			Steps: []string{
				"Schedule regular blood tests",
				"Track symptoms daily",
				"Consult healthcare provider regularly",
			},
		})
	}
	return recs
}
