package usecase

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
)

// Sub-score weights; they sum to 1.0
const (
	weightEvidence        = 0.30
	weightPersonalization = 0.25
	weightSafety          = 0.20
	weightCost            = 0.15
	weightPreference      = 0.10
)

// Personalization weights
const (
	conditionWeight    = 2.0
	elderlyAge         = 65
	elderlyBonus       = 0.5
	elderlyBonusWeight = 1.0
	pediatricAge       = 18
)

// Safety multipliers
const (
	safetySevere        = 0.1
	safetyModerate      = 0.5
	safetyMinor         = 0.8
	safetyBeneficial    = 1.2
	safetyAllergy       = 0.1
	safetyPregnancy     = 0.7
	safetyBreastfeeding = 0.7
	safetyPediatric     = 0.3
)

const defaultInclusionThreshold = 30.0

var evidenceBase = map[domain.EvidenceLevel]float64{
	domain.EvidenceStrong:       1.0,
	domain.EvidenceModerate:     0.7,
	domain.EvidenceWeak:         0.4,
	domain.EvidenceInsufficient: 0.1,
	domain.EvidenceConflicting:  0.3,
}

var costBase = map[domain.CostRating]float64{
	domain.CostExcellent: 1.0,
	domain.CostGood:      0.8,
	domain.CostFair:      0.6,
	domain.CostPoor:      0.3,
}

// ScoringConfig holds configuration for the scorer
type ScoringConfig struct {
	InclusionThreshold float64
	Parallelism        int
}

// ScoredCandidate is one catalog item with its total score and sub-scores
type ScoredCandidate struct {
	Item      *domain.CatalogItem
	Score     float64
	Breakdown domain.ScoreBreakdown
}

// Scorer ranks catalog items against a user profile
type Scorer struct {
	catalog     *CatalogIndex
	threshold   float64
	parallelism int
}

// NewScorer creates a scorer over the given catalog index
func NewScorer(catalog *CatalogIndex, config ScoringConfig) *Scorer {
	threshold := config.InclusionThreshold
	if threshold <= 0 {
		threshold = defaultInclusionThreshold
	}

	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	return &Scorer{
		catalog:     catalog,
		threshold:   threshold,
		parallelism: parallelism,
	}
}

// Threshold is the minimum score a candidate must exceed to be kept
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Rank scores every catalog item not already in the profile's current items,
// drops those at or below the inclusion threshold and returns the rest
// ordered by score, evidence, cost and finally id.
func (s *Scorer) Rank(ctx context.Context, profile *domain.UserProfile) ([]ScoredCandidate, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	current := make(map[string]bool, len(profile.CurrentItems))
	for _, id := range profile.CurrentItems {
		current[id] = true
	}

	var candidates []*domain.CatalogItem
	for i := range s.catalog.items {
		item := &s.catalog.items[i]
		if !current[item.ID] {
			candidates = append(candidates, item)
		}
	}

	overrides := newOverrideTable(profile.RatingOverrides)
	slots := make([]ScoredCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, item := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = s.score(profile, item, overrides)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.CandidatesScored.Add(float64(len(slots)))

	kept := make([]ScoredCandidate, 0, len(slots))
	for _, c := range slots {
		if c.Score > s.threshold {
			kept = append(kept, c)
		}
	}
	SortCandidates(kept)

	logging.Ctx(ctx).Debug().
		Str("component", "scorer").
		Int("candidates", len(slots)).
		Int("kept", len(kept)).
		Float64("threshold", s.threshold).
		Msg("Scored catalog")

	return kept, nil
}

// ScoreItem scores a single item; it does not apply the threshold
func (s *Scorer) ScoreItem(profile *domain.UserProfile, item *domain.CatalogItem) ScoredCandidate {
	return s.score(profile, item, newOverrideTable(profile.RatingOverrides))
}

func (s *Scorer) score(profile *domain.UserProfile, item *domain.CatalogItem, overrides overrideTable) ScoredCandidate {
	b := domain.ScoreBreakdown{
		Evidence:        evidenceScore(item),
		Personalization: personalizationScore(item, profile, overrides),
		Safety:          safetyScore(item, profile),
		Cost:            costScore(item, profile.Preferences.Budget),
		Preference:      preferenceScore(item, profile.Preferences),
	}

	total := (b.Evidence*weightEvidence +
		b.Personalization*weightPersonalization +
		b.Safety*weightSafety +
		b.Cost*weightCost +
		b.Preference*weightPreference) * 100

	return ScoredCandidate{Item: item, Score: clamp(total, 0, 100), Breakdown: b}
}

// SortCandidates orders by score desc, then evidence desc, then cost asc, then id
func SortCandidates(c []ScoredCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Breakdown.Evidence != b.Breakdown.Evidence {
			return a.Breakdown.Evidence > b.Breakdown.Evidence
		}
		if a.Item.Economics.AverageMonthlyCost != b.Item.Economics.AverageMonthlyCost {
			return a.Item.Economics.AverageMonthlyCost < b.Item.Economics.AverageMonthlyCost
		}
		return a.Item.ID < b.Item.ID
	})
}

// evidenceScore maps the evidence level to a base value and adds bonuses
// for study volume and study quality, capped at 1.0
func evidenceScore(item *domain.CatalogItem) float64 {
	base, ok := evidenceBase[item.EvidenceLevel]
	if !ok {
		base = evidenceBase[domain.EvidenceInsufficient]
	}

	ce := item.ClinicalEvidence
	studyBonus := math.Min(0.2, float64(ce.TotalStudies)/1000)
	qualityBonus := math.Min(0.2, (float64(ce.RCTCount)*0.1+float64(ce.MetaAnalyses)*0.2)/10)

	return math.Min(1.0, base+studyBonus+qualityBonus)
}

// personalizationScore accumulates the best matching effectiveness per goal and
// condition, weighted by priority, normalized by the maximum possible weight
func personalizationScore(item *domain.CatalogItem, profile *domain.UserProfile, overrides overrideTable) float64 {
	var score, maxPossible float64

	for _, goal := range profile.HealthGoals {
		w := goal.Priority.Weight()
		maxPossible += w
		if best, ok := bestRating(item, overrides, goal.Goal, goal.LocalizedGoal); ok {
			score += best / 10 * w
		}
	}

	for _, condition := range profile.HealthConditions {
		maxPossible += conditionWeight
		if best, ok := bestRating(item, overrides, condition); ok {
			score += best / 10 * conditionWeight
		}
	}

	if profile.Age >= elderlyAge && len(item.Safety.ElderlyConsiderations) > 0 {
		maxPossible += elderlyBonusWeight
		score += elderlyBonus
	}

	if maxPossible == 0 {
		return 0
	}
	return clamp(score/maxPossible, 0, 1)
}

// bestRating returns the highest effectiveness among applications matching any text
func bestRating(item *domain.CatalogItem, overrides overrideTable, texts ...string) (float64, bool) {
	best, found := 0.0, false
	for _, app := range item.ClinicalApplications {
		if !applicationMatches(app, texts...) {
			continue
		}
		r := overrides.rating(item.ID, app)
		if !found || r > best {
			best, found = r, true
		}
	}
	return best, found
}

// safetyScore starts at 1.0 and multiplies down per risk; the result is clamped to [0,1]
func safetyScore(item *domain.CatalogItem, profile *domain.UserProfile) float64 {
	score := 1.0

	for _, med := range profile.Medications {
		rule, ok := medicationRule(item, med)
		if !ok {
			continue
		}
		severity, _ := mapDeclaredSeverity(rule.Severity)
		switch severity {
		case domain.SeverityContraindicated, domain.SeverityMajor:
			score *= safetySevere
		case domain.SeverityModerate:
			score *= safetyModerate
		case domain.SeverityMinor:
			score *= safetyMinor
		case domain.SeverityBeneficial:
			score *= safetyBeneficial
		}
	}

	for _, allergy := range profile.Allergies {
		for _, c := range item.ActiveCompounds {
			if containsAny(c.Name, []string{allergy}) || containsAny(c.LocalizedName, []string{allergy}) {
				score *= safetyAllergy
			}
		}
	}

	if pregnancyApplies(profile) && pregnancyRisky(item) {
		score *= safetyPregnancy
	}

	if profile.Breastfeeding != nil && *profile.Breastfeeding &&
		strings.EqualFold(item.Safety.BreastfeedingSafety, "unsafe") {
		score *= safetyBreastfeeding
	}

	if profile.Age > 0 && profile.Age < pediatricAge && !item.Safety.PediatricApproved {
		score *= safetyPediatric
	}

	return clamp(score, 0, 1)
}

// pregnancyApplies keys off the explicit flag when present. Without it, every
// female user gets the conservative penalty.
func pregnancyApplies(profile *domain.UserProfile) bool {
	if profile.Pregnant != nil {
		return *profile.Pregnant
	}
	return profile.Sex == domain.SexFemale
}

func pregnancyRisky(item *domain.CatalogItem) bool {
	switch strings.ToUpper(item.Safety.PregnancyCategory) {
	case "D", "X":
		return true
	}
	return false
}

// medicationRule finds the first declared rule naming the medication or its active ingredient
func medicationRule(item *domain.CatalogItem, med domain.Medication) (domain.InteractionRule, bool) {
	for _, rule := range item.Interactions {
		for _, sub := range []string{rule.Substance, rule.LocalizedSubstance} {
			if domain.MatchesText(sub, med.Name) || domain.MatchesText(sub, med.ActiveIngredient) {
				return rule, true
			}
		}
	}
	return domain.InteractionRule{}, false
}

// costScore is zero above the budget ceiling, otherwise the cost-effectiveness
// base plus a bonus for sitting well under the ceiling. A zero ceiling means
// no budget was given.
func costScore(item *domain.CatalogItem, budget domain.BudgetRange) float64 {
	cost := item.Economics.AverageMonthlyCost
	if budget.Max > 0 && cost > budget.Max {
		return 0
	}

	base, ok := costBase[item.Economics.CostEffectiveness]
	if !ok {
		base = 0.5
	}
	if budget.Max <= 0 {
		return base
	}

	var bonus float64
	switch ratio := cost / budget.Max; {
	case ratio < 0.5:
		bonus = 0.2
	case ratio < 0.8:
		bonus = 0.1
	}
	return math.Min(1.0, base+bonus)
}

// preferenceScore rewards declared preferences only; with none declared it is 1.0
func preferenceScore(item *domain.CatalogItem, prefs domain.Preferences) float64 {
	var score, maxScore float64

	if len(prefs.PreferredForms) > 0 {
		maxScore += 2
		for _, form := range item.Quality.Forms {
			if containsAny(form, prefs.PreferredForms) {
				score += 2
				break
			}
		}
	}

	if prefs.Vegan {
		maxScore++
		vegan := true
		for _, form := range item.Quality.Forms {
			if containsAny(form, []string{"gelatin"}) {
				vegan = false
				break
			}
		}
		if vegan {
			score++
		}
	}

	if prefs.Organic {
		maxScore++
		for _, marker := range item.Quality.QualityMarkers {
			if containsAny(marker, []string{"organic"}) {
				score++
				break
			}
		}
	}

	if maxScore == 0 {
		return 1
	}
	return score / maxScore
}

// overrideTable maps item id and normalized condition to a caller-supplied rating
type overrideTable map[string]float64

func newOverrideTable(overrides []domain.RatingOverride) overrideTable {
	if len(overrides) == 0 {
		return nil
	}
	t := make(overrideTable, len(overrides))
	for _, o := range overrides {
		t[o.ItemID+"|"+normalizeText(o.Condition)] = o.Rating
	}
	return t
}

func (t overrideTable) rating(itemID string, app domain.ClinicalApplication) float64 {
	if t != nil {
		for _, cond := range []string{app.Condition, app.LocalizedCondition} {
			if r, ok := t[itemID+"|"+normalizeText(cond)]; ok && cond != "" {
				return r
			}
		}
	}
	return app.EffectivenessRating
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
