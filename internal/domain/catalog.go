package domain

import (
	"fmt"
	"strings"
)

// Category classifies a supplement
type Category string

const (
	CategoryVitamin   Category = "vitamin"
	CategoryMineral   Category = "mineral"
	CategoryAminoAcid Category = "amino_acid"
	CategoryFattyAcid Category = "fatty_acid"
	CategoryHerb      Category = "herb"
	CategoryAdaptogen Category = "adaptogen"
	CategoryNootropic Category = "nootropic"
	CategoryCoenzyme  Category = "coenzyme"
	CategoryProbiotic Category = "probiotic"
	CategoryEnzyme    Category = "enzyme"
	CategoryOther     Category = "other"
)

var validCategories = map[Category]bool{
	CategoryVitamin: true, CategoryMineral: true, CategoryAminoAcid: true,
	CategoryFattyAcid: true, CategoryHerb: true, CategoryAdaptogen: true,
	CategoryNootropic: true, CategoryCoenzyme: true, CategoryProbiotic: true,
	CategoryEnzyme: true, CategoryOther: true,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return validCategories[c]
}

// EvidenceLevel is the ordinal strength of supporting research:
// strong > moderate > weak > insufficient > conflicting
type EvidenceLevel string

const (
	EvidenceStrong       EvidenceLevel = "strong"
	EvidenceModerate     EvidenceLevel = "moderate"
	EvidenceWeak         EvidenceLevel = "weak"
	EvidenceInsufficient EvidenceLevel = "insufficient"
	EvidenceConflicting  EvidenceLevel = "conflicting"
)

var evidenceRanks = map[EvidenceLevel]int{
	EvidenceStrong:       4,
	EvidenceModerate:     3,
	EvidenceWeak:         2,
	EvidenceInsufficient: 1,
	EvidenceConflicting:  0,
}

// Valid reports whether e is one of the fixed evidence levels
func (e EvidenceLevel) Valid() bool {
	_, ok := evidenceRanks[e]
	return ok
}

// Rank returns the ordinal position of e, -1 when unknown
func (e EvidenceLevel) Rank() int {
	if r, ok := evidenceRanks[e]; ok {
		return r
	}
	return -1
}

// ParseEvidenceLevel normalizes free-form level names ("STRONG", " Moderate ")
func ParseEvidenceLevel(s string) (EvidenceLevel, bool) {
	level := EvidenceLevel(strings.ToLower(strings.TrimSpace(s)))
	return level, level.Valid()
}

// CostRating is the catalog's cost-effectiveness classification
type CostRating string

const (
	CostExcellent CostRating = "excellent"
	CostGood      CostRating = "good"
	CostFair      CostRating = "fair"
	CostPoor      CostRating = "poor"
)

// ClinicalEvidence summarizes the research base behind an item
type ClinicalEvidence struct {
	TotalStudies int `json:"totalStudies" yaml:"totalStudies"`
	RCTCount     int `json:"rctCount" yaml:"rctCount"`
	MetaAnalyses int `json:"metaAnalyses" yaml:"metaAnalyses"`
}

// ActiveCompound is a named constituent checked against allergies
type ActiveCompound struct {
	Name          string `json:"name" yaml:"name"`
	LocalizedName string `json:"localizedName,omitempty" yaml:"localizedName"`
}

// ClinicalApplication rates an item's effectiveness for one condition
type ClinicalApplication struct {
	Condition           string        `json:"condition" yaml:"condition"`
	LocalizedCondition  string        `json:"localizedCondition,omitempty" yaml:"localizedCondition"`
	EffectivenessRating float64       `json:"effectivenessRating" yaml:"effectivenessRating"` // 0-10
	EvidenceLevel       EvidenceLevel `json:"evidenceLevel" yaml:"evidenceLevel"`
}

// Mechanism is a biological pathway the item acts on
type Mechanism struct {
	Pathway          string   `json:"pathway" yaml:"pathway"`
	LocalizedPathway string   `json:"localizedPathway,omitempty" yaml:"localizedPathway"`
	TargetSystems    []string `json:"targetSystems,omitempty" yaml:"targetSystems"`
	TimeToEffect     string   `json:"timeToEffect,omitempty" yaml:"timeToEffect"`
}

// InteractionRule is a declared interaction with another substance.
// Severity uses the catalog vocabulary (severe, moderate, minor, beneficial)
// or the canonical one; Type likewise.
type InteractionRule struct {
	Substance                string                  `json:"substance" yaml:"substance"`
	LocalizedSubstance       string                  `json:"localizedSubstance,omitempty" yaml:"localizedSubstance"`
	Type                     string                  `json:"type" yaml:"type"`
	Severity                 string                  `json:"severity" yaml:"severity"`
	Mechanism                string                  `json:"mechanism,omitempty" yaml:"mechanism"`
	Recommendation           string                  `json:"recommendation,omitempty" yaml:"recommendation"`
	SeparationRequired       bool                    `json:"separationRequired,omitempty" yaml:"separationRequired"`
	MinimumSeparation        string                  `json:"minimumSeparation,omitempty" yaml:"minimumSeparation"`
	RequiresDosageAdjustment bool                    `json:"requiresDosageAdjustment,omitempty" yaml:"requiresDosageAdjustment"`
	Monitoring               []MonitoringRequirement `json:"monitoring,omitempty" yaml:"monitoring"`
}

// SideEffect is a documented adverse effect
type SideEffect struct {
	Effect     string `json:"effect" yaml:"effect"`
	Frequency  string `json:"frequency" yaml:"frequency"` // common, uncommon, rare, very_rare
	Severity   string `json:"severity" yaml:"severity"`   // mild, moderate, severe
	Management string `json:"management,omitempty" yaml:"management"`
}

// SafetyProfile holds population-specific safety data
type SafetyProfile struct {
	PregnancyCategory     string          `json:"pregnancyCategory,omitempty" yaml:"pregnancyCategory"`     // A, B, C, D, X
	BreastfeedingSafety   string          `json:"breastfeedingSafety,omitempty" yaml:"breastfeedingSafety"` // safe, caution, unsafe, unknown
	PediatricApproved     bool            `json:"pediatricApproved" yaml:"pediatricApproved"`
	ElderlyConsiderations []string        `json:"elderlyConsiderations,omitempty" yaml:"elderlyConsiderations"`
	OrganRisks            map[string]bool `json:"organRisks,omitempty" yaml:"organRisks"`
}

// DosageRange is a therapeutic range in one unit
type DosageRange struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Unit string  `json:"unit" yaml:"unit"`
}

// DosageGuideline describes how an item is taken
type DosageGuideline struct {
	TherapeuticRange  DosageRange `json:"therapeuticRange" yaml:"therapeuticRange"`
	Timing            []string    `json:"timing,omitempty" yaml:"timing"`
	WithFood          bool        `json:"withFood" yaml:"withFood"`
	Contraindications []string    `json:"contraindications,omitempty" yaml:"contraindications"`
}

// EconomicData is the item's cost profile
type EconomicData struct {
	AverageMonthlyCost float64    `json:"averageMonthlyCost" yaml:"averageMonthlyCost"`
	Currency           string     `json:"currency,omitempty" yaml:"currency"`
	CostEffectiveness  CostRating `json:"costEffectiveness" yaml:"costEffectiveness"`
}

// QualityConsiderations lists purchasable forms and quality markers
type QualityConsiderations struct {
	Forms          []string `json:"forms,omitempty" yaml:"forms"`
	QualityMarkers []string `json:"qualityMarkers,omitempty" yaml:"qualityMarkers"`
}

// CatalogItem is one supplement's structured profile. Items are loaded once
// and never mutated afterwards.
type CatalogItem struct {
	ID                   string                `json:"id" yaml:"id"`
	Name                 string                `json:"name" yaml:"name"`
	LocalizedName        string                `json:"localizedName,omitempty" yaml:"localizedName"`
	Category             Category              `json:"category" yaml:"category"`
	EvidenceLevel        EvidenceLevel         `json:"evidenceLevel" yaml:"evidenceLevel"`
	ClinicalEvidence     ClinicalEvidence      `json:"clinicalEvidence" yaml:"clinicalEvidence"`
	ActiveCompounds      []ActiveCompound      `json:"activeCompounds,omitempty" yaml:"activeCompounds"`
	ClinicalApplications []ClinicalApplication `json:"clinicalApplications,omitempty" yaml:"clinicalApplications"`
	Mechanisms           []Mechanism           `json:"mechanisms,omitempty" yaml:"mechanisms"`
	Interactions         []InteractionRule     `json:"interactions,omitempty" yaml:"interactions"`
	SideEffects          []SideEffect          `json:"sideEffects,omitempty" yaml:"sideEffects"`
	Safety               SafetyProfile         `json:"safety" yaml:"safety"`
	Dosage               DosageGuideline       `json:"dosage" yaml:"dosage"`
	Economics            EconomicData          `json:"economics" yaml:"economics"`
	Quality              QualityConsiderations `json:"quality" yaml:"quality"`
	Tags                 []string              `json:"tags,omitempty" yaml:"tags"`
}

// AverageEffectiveness is the mean rating over all clinical applications
func (c *CatalogItem) AverageEffectiveness() float64 {
	if len(c.ClinicalApplications) == 0 {
		return 0
	}
	var sum float64
	for _, app := range c.ClinicalApplications {
		sum += app.EffectivenessRating
	}
	return sum / float64(len(c.ClinicalApplications))
}

// Validate checks the record invariants and names the first offending field
func (c *CatalogItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return recordError("id", "must not be empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return recordError("name", "must not be empty")
	}
	if !c.Category.Valid() {
		return recordError("category", fmt.Sprintf("unknown category %q", c.Category))
	}
	if !c.EvidenceLevel.Valid() {
		return recordError("evidenceLevel", fmt.Sprintf("unknown evidence level %q", c.EvidenceLevel))
	}
	for i, app := range c.ClinicalApplications {
		field := fmt.Sprintf("clinicalApplications[%d]", i)
		if app.EffectivenessRating < 0 || app.EffectivenessRating > 10 {
			return recordError(field+".effectivenessRating", fmt.Sprintf("%.2f outside [0,10]", app.EffectivenessRating))
		}
		if app.EvidenceLevel != "" && !app.EvidenceLevel.Valid() {
			return recordError(field+".evidenceLevel", fmt.Sprintf("unknown evidence level %q", app.EvidenceLevel))
		}
	}
	r := c.Dosage.TherapeuticRange
	if r.Min < 0 || r.Max < 0 {
		return recordError("dosage.therapeuticRange", "must not be negative")
	}
	if r.Min > r.Max {
		return recordError("dosage.therapeuticRange", fmt.Sprintf("min %.2f > max %.2f", r.Min, r.Max))
	}
	if c.Economics.AverageMonthlyCost < 0 {
		return recordError("economics.averageMonthlyCost", "must not be negative")
	}
	switch strings.ToUpper(c.Safety.PregnancyCategory) {
	case "", "A", "B", "C", "D", "X":
	default:
		return recordError("safety.pregnancyCategory", fmt.Sprintf("unknown category %q", c.Safety.PregnancyCategory))
	}
	return nil
}

func recordError(field, reason string) *FieldError {
	return &FieldError{Kind: ErrCatalogLoad, Field: field, Reason: reason}
}

// SearchFilters selects catalog items. All set filters are ANDed;
// zero values are no-ops.
type SearchFilters struct {
	Categories        []Category      `json:"categories,omitempty"`
	EvidenceLevels    []EvidenceLevel `json:"evidenceLevels,omitempty"`
	Term              string          `json:"term,omitempty"`
	MinEffectiveness  *float64        `json:"minEffectiveness,omitempty"`
	MaxMonthlyCost    *float64        `json:"maxMonthlyCost,omitempty"`
	PregnancySafe     bool            `json:"pregnancySafe,omitempty"`
	BreastfeedingSafe bool            `json:"breastfeedingSafe,omitempty"`
	PediatricApproved bool            `json:"pediatricApproved,omitempty"`
	Mechanisms        []string        `json:"mechanisms,omitempty"`
	Conditions        []string        `json:"conditions,omitempty"`
}
