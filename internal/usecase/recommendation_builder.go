package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/suplementor/backend/internal/domain"
)

const (
	maxAlternatives     = 2
	maxBenefitProb      = 0.95
	defaultTimeToEffect = "4-8 weeks"
	lowWeightKg         = 60
	highWeightKg        = 90
)

// probability multipliers by evidence level
var benefitMultipliers = map[domain.EvidenceLevel]float64{
	domain.EvidenceStrong:       1.0,
	domain.EvidenceModerate:     0.8,
	domain.EvidenceWeak:         0.6,
	domain.EvidenceInsufficient: 0.3,
	domain.EvidenceConflicting:  0.4,
}

// resultBuilder packages one scored candidate into a RecommendationResult.
// It only reads its inputs.
type resultBuilder struct {
	profile   *domain.UserProfile
	overrides overrideTable
	analyzer  *InteractionAnalyzer
	ranked    []ScoredCandidate
	source    domain.EvidenceSource
}

func (b *resultBuilder) build(c ScoredCandidate) domain.RecommendationResult {
	item := c.Item
	withCurrent := b.analyzer.InteractionsWith(item.ID, b.profile.CurrentItems)
	benefits := b.expectedBenefits(item)

	return domain.RecommendationResult{
		Item:             *item,
		Score:            c.Score,
		Breakdown:        c.Breakdown,
		Reasoning:        b.reasoning(c, withCurrent),
		Warnings:         b.warnings(item, withCurrent),
		Dosage:           b.dosage(item),
		ExpectedBenefits: benefits,
		Timeline:         timeline(item),
		Cost:             b.costAnalysis(item, len(item.ClinicalApplications)),
		Alternatives:     b.alternatives(c),
	}
}

// matchedGoals returns the goal and condition texts this item addresses
func (b *resultBuilder) matchedGoals(item *domain.CatalogItem) (goals, conditions []string) {
	goals, conditions = []string{}, []string{}
	for _, g := range b.profile.HealthGoals {
		if _, ok := bestRating(item, b.overrides, g.Goal, g.LocalizedGoal); ok {
			goals = append(goals, g.Goal)
		}
	}
	for _, cond := range b.profile.HealthConditions {
		if _, ok := bestRating(item, b.overrides, cond); ok {
			conditions = append(conditions, cond)
		}
	}
	return goals, conditions
}

func (b *resultBuilder) reasoning(c ScoredCandidate, withCurrent []domain.InteractionPair) domain.Reasoning {
	item := c.Item
	goals, conditions := b.matchedGoals(item)

	r := domain.Reasoning{
		PrimaryReasons:      []string{},
		MatchedGoals:        goals,
		MatchedConditions:   conditions,
		PersonalizedFactors: []string{},
		Synergies:           []string{},
		Evidence: domain.EvidenceSupport{
			Level:      item.EvidenceLevel,
			StudyCount: item.ClinicalEvidence.TotalStudies,
			Description: fmt.Sprintf("%s evidence from %d studies (%d RCTs, %d meta-analyses)",
				item.EvidenceLevel, item.ClinicalEvidence.TotalStudies,
				item.ClinicalEvidence.RCTCount, item.ClinicalEvidence.MetaAnalyses),
			Source: b.source,
		},
	}

	for _, g := range b.profile.HealthGoals {
		if best, ok := bestRating(item, b.overrides, g.Goal, g.LocalizedGoal); ok {
			r.PrimaryReasons = append(r.PrimaryReasons,
				fmt.Sprintf("Addresses your %s priority goal %q (effectiveness %.0f/10)", g.Priority, g.Goal, best))
		}
	}
	if c.Breakdown.Evidence >= 0.8 {
		r.PrimaryReasons = append(r.PrimaryReasons,
			fmt.Sprintf("Well researched: %d studies", item.ClinicalEvidence.TotalStudies))
	}
	if c.Breakdown.Cost >= 0.8 {
		r.PrimaryReasons = append(r.PrimaryReasons, "Good value for your budget")
	}
	if len(b.profile.Medications) > 0 && c.Breakdown.Safety >= 1 {
		r.PrimaryReasons = append(r.PrimaryReasons, "No declared conflicts with your medications")
	}

	p := b.profile
	if p.Age >= elderlyAge && len(item.Safety.ElderlyConsiderations) > 0 {
		r.PersonalizedFactors = append(r.PersonalizedFactors,
			"Age 65+: "+strings.Join(item.Safety.ElderlyConsiderations, "; "))
	}
	if p.Age > 0 && p.Age < pediatricAge && item.Safety.PediatricApproved {
		r.PersonalizedFactors = append(r.PersonalizedFactors, "Approved for use under 18")
	}
	if p.WeightKg > 0 && (p.WeightKg < lowWeightKg || p.WeightKg > highWeightKg) {
		r.PersonalizedFactors = append(r.PersonalizedFactors, fmt.Sprintf("Dose adjusted for body weight %.0f kg", p.WeightKg))
	}
	if p.Lifestyle.StressLevel >= 4 && item.Category == domain.CategoryAdaptogen {
		r.PersonalizedFactors = append(r.PersonalizedFactors, "Adaptogen matched to high reported stress")
	}
	if p.Lifestyle.SleepHours > 0 && p.Lifestyle.SleepHours < 7 && containsAnyApplication(item, "sleep") {
		r.PersonalizedFactors = append(r.PersonalizedFactors, "Supports sleep; you report under 7 hours")
	}

	for _, pair := range withCurrent {
		if pair.Severity == domain.SeverityBeneficial || pair.Type == domain.InteractionSynergistic {
			r.Synergies = append(r.Synergies,
				fmt.Sprintf("Works with %s: %s", otherItem(pair, item.ID), pair.Mechanism))
		}
	}

	return r
}

func containsAnyApplication(item *domain.CatalogItem, text string) bool {
	for _, app := range item.ClinicalApplications {
		if applicationMatches(app, text) {
			return true
		}
	}
	return false
}

func otherItem(p domain.InteractionPair, self string) string {
	if p.ItemA == self {
		return p.ItemB
	}
	return p.ItemA
}

func (b *resultBuilder) warnings(item *domain.CatalogItem, withCurrent []domain.InteractionPair) []domain.Warning {
	warnings := []domain.Warning{}
	p := b.profile

	for _, med := range p.Medications {
		rule, ok := medicationRule(item, med)
		if !ok {
			continue
		}
		severity, _ := mapDeclaredSeverity(rule.Severity)
		if severity == domain.SeverityBeneficial {
			continue
		}
		level := domain.WarningModerate
		switch {
		case severity.HighRisk():
			level = domain.WarningCritical
		case severity == domain.SeverityModerate:
			level = domain.WarningHigh
		}
		warnings = append(warnings, domain.Warning{
			Type:           "interaction",
			Severity:       level,
			Message:        fmt.Sprintf("Interacts with %s: %s", med.Name, rule.Mechanism),
			Recommendation: orDefault(rule.Recommendation, "Consult your doctor before combining"),
		})
	}

	for _, allergy := range p.Allergies {
		for _, c := range item.ActiveCompounds {
			if containsAny(c.Name, []string{allergy}) || containsAny(c.LocalizedName, []string{allergy}) {
				warnings = append(warnings, domain.Warning{
					Type:           "contraindication",
					Severity:       domain.WarningCritical,
					Message:        fmt.Sprintf("Contains %s, listed in your allergies", c.Name),
					Recommendation: "Do not take this supplement",
				})
			}
		}
	}

	if pregnancyApplies(p) && pregnancyRisky(item) {
		warnings = append(warnings, domain.Warning{
			Type:           "contraindication",
			Severity:       domain.WarningHigh,
			Message:        fmt.Sprintf("Pregnancy category %s", strings.ToUpper(item.Safety.PregnancyCategory)),
			Recommendation: "Avoid during pregnancy unless prescribed",
		})
	}
	if p.Breastfeeding != nil && *p.Breastfeeding && strings.EqualFold(item.Safety.BreastfeedingSafety, "unsafe") {
		warnings = append(warnings, domain.Warning{
			Type:           "contraindication",
			Severity:       domain.WarningHigh,
			Message:        "Not considered safe while breastfeeding",
			Recommendation: "Avoid while breastfeeding",
		})
	}
	if p.Age > 0 && p.Age < pediatricAge && !item.Safety.PediatricApproved {
		warnings = append(warnings, domain.Warning{
			Type:           "contraindication",
			Severity:       domain.WarningHigh,
			Message:        "Not approved for use under 18",
			Recommendation: "Consult a pediatrician",
		})
	}

	for _, se := range item.SideEffects {
		if !strings.EqualFold(se.Frequency, "common") || strings.EqualFold(se.Severity, "mild") {
			continue
		}
		level := domain.WarningModerate
		if strings.EqualFold(se.Severity, "severe") {
			level = domain.WarningHigh
		}
		warnings = append(warnings, domain.Warning{
			Type:           "side_effect",
			Severity:       level,
			Message:        "Common side effect: " + se.Effect,
			Recommendation: orDefault(se.Management, "Reduce the dose if it occurs"),
		})
	}

	for _, pair := range withCurrent {
		if !pair.Severity.AtLeast(domain.SeverityModerate) {
			continue
		}
		level := domain.WarningModerate
		switch pair.Severity {
		case domain.SeverityContraindicated:
			level = domain.WarningCritical
		case domain.SeverityMajor:
			level = domain.WarningHigh
		}
		advice := pair.Recommendation
		if advice == "" && pair.Timing.SeparationRequired {
			advice = pair.Timing.Explanation
		}
		warnings = append(warnings, domain.Warning{
			Type:           "interaction",
			Severity:       level,
			Message:        fmt.Sprintf("%s interaction with %s: %s", pair.Severity, otherItem(pair, item.ID), pair.Mechanism),
			Recommendation: orDefault(advice, "Review this combination with a healthcare provider"),
		})
	}

	return warnings
}

// dosage starts at the range midpoint and adjusts for age and body weight
func (b *resultBuilder) dosage(item *domain.CatalogItem) domain.DosageRecommendation {
	r := item.Dosage.TherapeuticRange
	target := (r.Min + r.Max) / 2
	p := b.profile

	var notes []string
	switch {
	case p.Age >= elderlyAge:
		target = math.Max(r.Min, target*0.8)
		notes = append(notes, "Reduced dose for age 65+")
	case p.Age > 0 && p.Age < pediatricAge:
		target = math.Max(r.Min, target*0.6)
		notes = append(notes, "Reduced dose for age under 18")
	}
	switch {
	case p.WeightKg > 0 && p.WeightKg < lowWeightKg:
		target *= 0.9
		notes = append(notes, "Adjusted for lower body weight")
	case p.WeightKg > highWeightKg:
		target *= 1.1
		notes = append(notes, "Adjusted for higher body weight")
	}
	if item.Dosage.WithFood {
		notes = append(notes, "Take with a meal")
	}
	notes = append(notes, item.Dosage.Contraindications...)

	target = math.Round(target*10) / 10
	starting := math.Round(target/2*10) / 10

	timing := item.Dosage.Timing
	if len(timing) == 0 {
		timing = []string{"morning"}
	}

	return domain.DosageRecommendation{
		StartingDose:        starting,
		TargetDose:          target,
		Unit:                r.Unit,
		TitrationSchedule:   fmt.Sprintf("Start at %.1f %s for 1-2 weeks, then increase to %.1f %s", starting, r.Unit, target, r.Unit),
		Timing:              append([]string(nil), timing...),
		WithFood:            item.Dosage.WithFood,
		SpecialInstructions: notes,
	}
}

// expectedBenefits covers the applications that match the profile, or the
// strongest application when none match
func (b *resultBuilder) expectedBenefits(item *domain.CatalogItem) []domain.ExpectedBenefit {
	var texts []string
	for _, g := range b.profile.HealthGoals {
		texts = append(texts, g.Goal, g.LocalizedGoal)
	}
	texts = append(texts, b.profile.HealthConditions...)

	var apps []domain.ClinicalApplication
	for _, app := range item.ClinicalApplications {
		if applicationMatches(app, texts...) {
			apps = append(apps, app)
		}
	}
	if len(apps) == 0 && len(item.ClinicalApplications) > 0 {
		top := item.ClinicalApplications[0]
		for _, app := range item.ClinicalApplications[1:] {
			if b.overrides.rating(item.ID, app) > b.overrides.rating(item.ID, top) {
				top = app
			}
		}
		apps = []domain.ClinicalApplication{top}
	}

	timeToEffect := defaultTimeToEffect
	if len(item.Mechanisms) > 0 && item.Mechanisms[0].TimeToEffect != "" {
		timeToEffect = item.Mechanisms[0].TimeToEffect
	}

	benefits := make([]domain.ExpectedBenefit, 0, len(apps))
	for _, app := range apps {
		rating := b.overrides.rating(item.ID, app)
		level := app.EvidenceLevel
		if !level.Valid() {
			level = item.EvidenceLevel
		}
		mult, ok := benefitMultipliers[level]
		if !ok {
			mult = benefitMultipliers[domain.EvidenceInsufficient]
		}

		magnitude := "small"
		switch {
		case rating >= 8:
			magnitude = "large"
		case rating >= 6:
			magnitude = "moderate"
		}

		benefits = append(benefits, domain.ExpectedBenefit{
			Benefit:       app.Condition,
			Probability:   math.Min(maxBenefitProb, rating/10*mult),
			Magnitude:     magnitude,
			TimeToEffect:  timeToEffect,
			EvidenceLevel: level,
		})
	}
	return benefits
}

func timeline(item *domain.CatalogItem) []domain.TimelinePhase {
	var conditions []string
	for _, app := range item.ClinicalApplications {
		conditions = append(conditions, strings.ToLower(app.Condition))
	}
	target := "the targeted outcomes"
	if len(conditions) > 0 {
		target = strings.Join(conditions, ", ")
	}

	return []domain.TimelinePhase{
		{
			Phase:            "initial",
			Duration:         "1-2 weeks",
			ExpectedChanges:  []string{"Body adjusts to the supplement", "Watch for early side effects"},
			MonitoringPoints: []string{"Tolerance", "Digestive comfort"},
		},
		{
			Phase:            "adaptation",
			Duration:         "2-8 weeks",
			ExpectedChanges:  []string{"First noticeable changes in " + target},
			MonitoringPoints: []string{"Symptom diary", "Dose tolerance"},
		},
		{
			Phase:            "maintenance",
			Duration:         "8+ weeks",
			ExpectedChanges:  []string{"Full effect on " + target},
			MonitoringPoints: []string{"Long-term benefit review", "Periodic check-up"},
		},
	}
}

// costAnalysis fits monthly cost to the budget ceiling. Without a ceiling every
// item fits.
func (b *resultBuilder) costAnalysis(item *domain.CatalogItem, applications int) domain.CostAnalysis {
	cost := item.Economics.AverageMonthlyCost
	budget := b.profile.Preferences.Budget

	fit := "excellent"
	if budget.Max > 0 {
		switch ratio := cost / budget.Max; {
		case ratio <= 0.5:
			fit = "excellent"
		case ratio <= 0.7:
			fit = "good"
		case ratio <= 0.9:
			fit = "fair"
		default:
			fit = "poor"
		}
	}

	perBenefit := cost
	if applications > 0 {
		perBenefit = cost / float64(applications)
	}

	currency := item.Economics.Currency
	if currency == "" {
		currency = budget.Currency
	}

	tips := []string{"Larger packages usually lower the monthly cost"}
	if fit == "fair" || fit == "poor" {
		tips = append(tips, "Compare with the listed alternatives")
	}
	if item.Economics.CostEffectiveness == domain.CostPoor {
		tips = append(tips, "Generic forms may offer the same active compound for less")
	}

	return domain.CostAnalysis{
		MonthlyEstimate: cost,
		Currency:        currency,
		CostPerBenefit:  math.Round(perBenefit*100) / 100,
		BudgetFit:       fit,
		Tips:            tips,
	}
}

// alternatives picks up to two other ranked candidates sharing the category or a matched goal
func (b *resultBuilder) alternatives(c ScoredCandidate) []domain.Alternative {
	goals, _ := b.matchedGoals(c.Item)
	mine := make(map[string]bool, len(goals))
	for _, g := range goals {
		mine[g] = true
	}

	out := []domain.Alternative{}
	for _, other := range b.ranked {
		if len(out) == maxAlternatives {
			break
		}
		if other.Item.ID == c.Item.ID {
			continue
		}

		reason := ""
		if other.Item.Category == c.Item.Category {
			reason = fmt.Sprintf("Same category (%s)", other.Item.Category)
		} else {
			otherGoals, _ := b.matchedGoals(other.Item)
			for _, g := range otherGoals {
				if mine[g] {
					reason = fmt.Sprintf("Also addresses %q", g)
					break
				}
			}
		}
		if reason == "" {
			continue
		}

		out = append(out, domain.Alternative{
			ItemID:    other.Item.ID,
			Name:      other.Item.Name,
			Score:     other.Score,
			Reason:    reason,
			Tradeoffs: tradeoffs(c, other),
		})
	}
	return out
}

func tradeoffs(base, alt ScoredCandidate) []string {
	out := []string{}
	bc, ac := base.Item.Economics.AverageMonthlyCost, alt.Item.Economics.AverageMonthlyCost
	switch {
	case ac < bc:
		out = append(out, fmt.Sprintf("Lower cost (%.2f vs %.2f)", ac, bc))
	case ac > bc:
		out = append(out, fmt.Sprintf("Higher cost (%.2f vs %.2f)", ac, bc))
	}
	switch br, ar := base.Item.EvidenceLevel.Rank(), alt.Item.EvidenceLevel.Rank(); {
	case ar > br:
		out = append(out, "Stronger evidence")
	case ar < br:
		out = append(out, "Weaker evidence")
	}
	if alt.Breakdown.Safety < base.Breakdown.Safety {
		out = append(out, "More safety concerns for your profile")
	}
	return out
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
