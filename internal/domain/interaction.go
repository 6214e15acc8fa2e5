package domain

import (
	"strings"
	"time"
)

// InteractionType describes how two substances affect each other
type InteractionType string

const (
	InteractionSynergistic  InteractionType = "synergistic"
	InteractionAdditive     InteractionType = "additive"
	InteractionAntagonistic InteractionType = "antagonistic"
	InteractionCompetitive  InteractionType = "competitive"
	InteractionPotentiating InteractionType = "potentiating"
	InteractionInhibitory   InteractionType = "inhibitory"
	InteractionNeutral      InteractionType = "neutral"
	InteractionUnknown      InteractionType = "unknown"
)

// Severity is ordinal: beneficial < minor < moderate < major < contraindicated
type Severity string

const (
	SeverityBeneficial      Severity = "beneficial"
	SeverityMinor           Severity = "minor"
	SeverityModerate        Severity = "moderate"
	SeverityMajor           Severity = "major"
	SeverityContraindicated Severity = "contraindicated"
)

var severityRanks = map[Severity]int{
	SeverityBeneficial:      0,
	SeverityMinor:           1,
	SeverityModerate:        2,
	SeverityMajor:           3,
	SeverityContraindicated: 4,
}

// Rank returns the ordinal position of s, -1 when unknown
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is as severe as other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// HighRisk is true for major and contraindicated pairs
func (s Severity) HighRisk() bool {
	return s.AtLeast(SeverityMajor)
}

// InteractionBasis records where an interaction came from
type InteractionBasis string

const (
	// BasisDocumented means a declared catalog rule
	BasisDocumented InteractionBasis = "documented"
	// BasisTheoretical means mechanism-overlap inference
	BasisTheoretical InteractionBasis = "theoretical"
)

// EvidenceSource tells callers whether the external research service confirmed the result
type EvidenceSource string

const (
	EvidenceLocalOnly    EvidenceSource = "local-only"
	EvidenceCorroborated EvidenceSource = "corroborated"
)

// MonitoringRequirement is a parameter to watch while combining two items
type MonitoringRequirement struct {
	Parameter string `json:"parameter" yaml:"parameter"`
	Frequency string `json:"frequency" yaml:"frequency"`
	Action    string `json:"action" yaml:"action"`
}

// TimingRequirement says whether two items must be taken apart
type TimingRequirement struct {
	SeparationRequired bool   `json:"separationRequired"`
	MinimumSeparation  string `json:"minimumSeparation,omitempty"`
	Explanation        string `json:"explanation,omitempty"`
}

// DosageImpact says whether combining two items changes dosing
type DosageImpact struct {
	RequiresAdjustment bool   `json:"requiresAdjustment"`
	AdjustmentType     string `json:"adjustmentType,omitempty"` // increase, decrease, monitor
	Explanation        string `json:"explanation,omitempty"`
}

// InteractionPair is the analyzed relationship between two catalog items.
// ItemA < ItemB lexicographically so both orders resolve to one record.
type InteractionPair struct {
	ItemA          string                  `json:"itemA"`
	ItemB          string                  `json:"itemB"`
	Type           InteractionType         `json:"type"`
	Severity       Severity                `json:"severity"`
	Mechanism      string                  `json:"mechanism"`
	Recommendation string                  `json:"recommendation,omitempty"`
	Basis          InteractionBasis        `json:"basis"`
	EvidenceLevel  EvidenceLevel           `json:"evidenceLevel"`
	Timing         TimingRequirement       `json:"timing"`
	DosageImpact   DosageImpact            `json:"dosageImpact"`
	Monitoring     []MonitoringRequirement `json:"monitoring,omitempty"`
}

// PairKey canonicalizes an unordered pair of identifiers
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// CanonicalPair returns a and b in lexicographic order
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// RiskLevel is the aggregated verdict over a set of pairs
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Rank returns the ordinal position of r
func (r RiskLevel) Rank() int {
	switch r {
	case RiskVeryHigh:
		return 3
	case RiskHigh:
		return 2
	case RiskModerate:
		return 1
	default:
		return 0
	}
}

// RiskAssessment is the overall verdict plus mitigation guidance
type RiskAssessment struct {
	OverallRisk          RiskLevel `json:"overallRisk"`
	RiskFactors          []string  `json:"riskFactors"`
	Contraindications    []string  `json:"contraindications"`
	MitigationStrategies []string  `json:"mitigationStrategies"`
}

// InteractionRecommendation is an actionable step derived from the pairs
type InteractionRecommendation struct {
	Type           string   `json:"type"`     // timing, dosage, monitoring, avoidance
	Priority       Priority `json:"priority"` // low, medium, high
	Recommendation string   `json:"recommendation"`
	Rationale      string   `json:"rationale"`
	Steps          []string `json:"steps,omitempty"`
}

// InteractionMatrix is the response to an interaction request
type InteractionMatrix struct {
	ID              string                      `json:"id"`
	Items           []string                    `json:"items"`
	UnknownItems    []string                    `json:"unknownItems,omitempty"`
	Interactions    []InteractionPair           `json:"interactions"`
	Risk            RiskAssessment              `json:"riskAssessment"`
	Recommendations []InteractionRecommendation `json:"recommendations"`
	EvidenceSource  EvidenceSource              `json:"evidenceSource"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
}

// SafetySummary splits pairs into critical and warning lines
type SafetySummary struct {
	Critical        []string `json:"critical"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// MedicationInteraction is a declared rule on a catalog item that names a medication
type MedicationInteraction struct {
	ItemID         string          `json:"itemId"`
	Medication     string          `json:"medication"`
	Type           InteractionType `json:"type"`
	Severity       Severity        `json:"severity"`
	Mechanism      string          `json:"mechanism,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// MatchesText is a case-insensitive substring test in either direction.
// Empty or one-character strings never match.
func MatchesText(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
