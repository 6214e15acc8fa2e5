package domain

import "time"

// RecommendationRequest asks for ranked items for one profile
type RecommendationRequest struct {
	Profile    UserProfile `json:"profile"`
	MaxResults int         `json:"maxResults,omitempty"`
}

// ScoreBreakdown holds the five normalized sub-scores, each in [0,1]
type ScoreBreakdown struct {
	Evidence        float64 `json:"evidence"`
	Personalization float64 `json:"personalization"`
	Safety          float64 `json:"safety"`
	Cost            float64 `json:"cost"`
	Preference      float64 `json:"preference"`
}

// EvidenceSupport summarizes the research behind an item
type EvidenceSupport struct {
	Level       EvidenceLevel  `json:"level"`
	StudyCount  int            `json:"studyCount"`
	Description string         `json:"description"`
	Source      EvidenceSource `json:"source"`
}

// Reasoning explains why an item was recommended
type Reasoning struct {
	PrimaryReasons      []string        `json:"primaryReasons"`
	MatchedGoals        []string        `json:"matchedGoals"`
	MatchedConditions   []string        `json:"matchedConditions"`
	PersonalizedFactors []string        `json:"personalizedFactors"`
	Synergies           []string        `json:"synergies"`
	Evidence            EvidenceSupport `json:"evidence"`
}

// WarningSeverity grades a warning
type WarningSeverity string

const (
	WarningLow      WarningSeverity = "low"
	WarningModerate WarningSeverity = "moderate"
	WarningHigh     WarningSeverity = "high"
	WarningCritical WarningSeverity = "critical"
)

// Warning is a safety note attached to a recommendation
type Warning struct {
	Type           string          `json:"type"` // interaction, contraindication, side_effect, dosage, monitoring
	Severity       WarningSeverity `json:"severity"`
	Message        string          `json:"message"`
	Recommendation string          `json:"recommendation"`
}

// DosageRecommendation is the age/weight adjusted dose
type DosageRecommendation struct {
	StartingDose        float64  `json:"startingDose"`
	TargetDose          float64  `json:"targetDose"`
	Unit                string   `json:"unit"`
	TitrationSchedule   string   `json:"titrationSchedule"`
	Timing              []string `json:"timing"`
	WithFood            bool     `json:"withFood"`
	SpecialInstructions []string `json:"specialInstructions"`
}

// ExpectedBenefit is one outcome the user may see
type ExpectedBenefit struct {
	Benefit       string        `json:"benefit"`
	Probability   float64       `json:"probability"`
	Magnitude     string        `json:"magnitude"` // small, moderate, large
	TimeToEffect  string        `json:"timeToEffect"`
	EvidenceLevel EvidenceLevel `json:"evidenceLevel"`
}

// TimelinePhase is one stage of the expected course
type TimelinePhase struct {
	Phase            string   `json:"phase"`
	Duration         string   `json:"duration"`
	ExpectedChanges  []string `json:"expectedChanges"`
	MonitoringPoints []string `json:"monitoringPoints"`
}

// CostAnalysis fits an item's cost to the user's budget
type CostAnalysis struct {
	MonthlyEstimate float64  `json:"monthlyEstimate"`
	Currency        string   `json:"currency"`
	CostPerBenefit  float64  `json:"costPerBenefit"`
	BudgetFit       string   `json:"budgetFit"` // excellent, good, fair, poor
	Tips            []string `json:"tips"`
}

// Alternative is another candidate worth comparing
type Alternative struct {
	ItemID    string   `json:"itemId"`
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Reason    string   `json:"reason"`
	Tradeoffs []string `json:"tradeoffs"`
}

// RecommendationResult is built once per request and never mutated
type RecommendationResult struct {
	Item             CatalogItem          `json:"item"`
	Score            float64              `json:"score"`
	Breakdown        ScoreBreakdown       `json:"breakdown"`
	Reasoning        Reasoning            `json:"reasoning"`
	Warnings         []Warning            `json:"warnings"`
	Dosage           DosageRecommendation `json:"dosage"`
	ExpectedBenefits []ExpectedBenefit    `json:"expectedBenefits"`
	Timeline         []TimelinePhase      `json:"timeline"`
	Cost             CostAnalysis         `json:"cost"`
	Alternatives     []Alternative        `json:"alternatives"`
}

// RecommendationResponse is the ordered result list, highest score first
type RecommendationResponse struct {
	ID                  string                 `json:"id"`
	Results             []RecommendationResult `json:"results"`
	UnknownCurrentItems []string               `json:"unknownCurrentItems,omitempty"`
	EvidenceSource      EvidenceSource         `json:"evidenceSource"`
	GeneratedAt         time.Time              `json:"generatedAt"`
}

// EvidenceSummary is what the research service reports for one substance and condition
type EvidenceSummary struct {
	StudyCount    int           `json:"studyCount"`
	EvidenceLevel EvidenceLevel `json:"evidenceLevel"`
}
