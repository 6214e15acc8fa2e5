package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
)

// catalog vocabulary → canonical severity
var declaredSeverities = map[string]domain.Severity{
	"severe":          domain.SeverityContraindicated,
	"contraindicated": domain.SeverityContraindicated,
	"major":           domain.SeverityMajor,
	"moderate":        domain.SeverityModerate,
	"minor":           domain.SeverityMinor,
	"mild":            domain.SeverityMinor,
	"beneficial":      domain.SeverityBeneficial,
}

var declaredTypes = map[string]domain.InteractionType{
	"synergistic":  domain.InteractionSynergistic,
	"additive":     domain.InteractionAdditive,
	"antagonistic": domain.InteractionAntagonistic,
	"competitive":  domain.InteractionCompetitive,
	"potentiating": domain.InteractionPotentiating,
	"inhibitory":   domain.InteractionInhibitory,
	"neutral":      domain.InteractionNeutral,
}

// mapDeclaredSeverity maps a catalog severity word onto the canonical scale
func mapDeclaredSeverity(s string) (domain.Severity, bool) {
	sev, ok := declaredSeverities[strings.ToLower(strings.TrimSpace(s))]
	return sev, ok
}

// mapDeclaredType maps a catalog interaction type; anything unrecognized is unknown
func mapDeclaredType(s string) domain.InteractionType {
	if t, ok := declaredTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return domain.InteractionUnknown
}

// InteractionAnalyzer detects interactions between catalog items. Declared
// rules are resolved into a pair table once at construction; mechanism
// overlap is the fallback when no rule names the other item.
type InteractionAnalyzer struct {
	catalog     *CatalogIndex
	declared    map[string]domain.InteractionPair
	targets     map[string]map[string]bool
	parallelism int
	log         zerolog.Logger
}

// NewInteractionAnalyzer builds the declared-rule table for every ordered item pair
func NewInteractionAnalyzer(catalog *CatalogIndex) *InteractionAnalyzer {
	a := &InteractionAnalyzer{
		catalog:     catalog,
		declared:    make(map[string]domain.InteractionPair),
		targets:     make(map[string]map[string]bool, catalog.Len()),
		parallelism: runtime.GOMAXPROCS(0),
		log:         logging.Component("interaction_analyzer"),
	}

	items := catalog.items
	for i := range items {
		a.targets[items[i].ID] = targetSystems(&items[i])
	}

	for i := range items {
		owner := &items[i]
		for j := range items {
			if i == j {
				continue
			}
			other := &items[j]
			rule, ok := ruleNaming(owner, other)
			if !ok {
				continue
			}
			pair := documentedPair(owner, other, rule)
			key := domain.PairKey(owner.ID, other.ID)
			if existing, seen := a.declared[key]; seen && !preferRule(pair, existing, owner.ID) {
				continue
			}
			a.declared[key] = pair
		}
	}

	a.log.Info().
		Int("items", len(items)).
		Int("declared_pairs", len(a.declared)).
		Msg("Interaction rule table built")

	return a
}

// preferRule decides whether candidate (declared on owner) replaces existing.
// The more severe rule wins; on a tie the rule declared on the lexicographically
// first item wins.
func preferRule(candidate, existing domain.InteractionPair, owner string) bool {
	if candidate.Severity.Rank() != existing.Severity.Rank() {
		return candidate.Severity.Rank() > existing.Severity.Rank()
	}
	return owner == candidate.ItemA
}

// ruleNaming returns the first rule on owner whose substance names other
func ruleNaming(owner, other *domain.CatalogItem) (domain.InteractionRule, bool) {
	names := []string{other.Name, other.LocalizedName}
	for _, rule := range owner.Interactions {
		for _, sub := range []string{rule.Substance, rule.LocalizedSubstance} {
			for _, name := range names {
				if domain.MatchesText(sub, name) {
					return rule, true
				}
			}
		}
	}
	return domain.InteractionRule{}, false
}

func documentedPair(owner, other *domain.CatalogItem, rule domain.InteractionRule) domain.InteractionPair {
	a, b := domain.CanonicalPair(owner.ID, other.ID)

	severity, ok := mapDeclaredSeverity(rule.Severity)
	if !ok {
		severity = domain.SeverityModerate
	}

	mechanism := rule.Mechanism
	if mechanism == "" {
		mechanism = fmt.Sprintf("Declared interaction between %s and %s", owner.Name, other.Name)
	}

	level := owner.EvidenceLevel
	if !level.Valid() {
		level = domain.EvidenceModerate
	}

	pair := domain.InteractionPair{
		ItemA:          a,
		ItemB:          b,
		Type:           mapDeclaredType(rule.Type),
		Severity:       severity,
		Mechanism:      mechanism,
		Recommendation: rule.Recommendation,
		Basis:          domain.BasisDocumented,
		EvidenceLevel:  level,
		Timing: domain.TimingRequirement{
			SeparationRequired: rule.SeparationRequired,
			MinimumSeparation:  rule.MinimumSeparation,
		},
		Monitoring: append([]domain.MonitoringRequirement(nil), rule.Monitoring...),
	}
	if rule.SeparationRequired {
		pair.Timing.Explanation = "Take at different times of day"
		if rule.MinimumSeparation != "" {
			pair.Timing.Explanation = "Separate intake by at least " + rule.MinimumSeparation
		}
	}
	if rule.RequiresDosageAdjustment {
		pair.DosageImpact = domain.DosageImpact{
			RequiresAdjustment: true,
			AdjustmentType:     "monitor",
			Explanation:        "Dose of one or both items may need adjustment",
		}
	}
	return pair
}

// inferredPair synthesizes a low-confidence synergy from shared target systems
func (a *InteractionAnalyzer) inferredPair(idA, idB string) (domain.InteractionPair, bool) {
	ta, tb := a.targets[idA], a.targets[idB]
	var shared []string
	for tag := range ta {
		if tb[tag] {
			shared = append(shared, tag)
		}
	}
	if len(shared) == 0 {
		return domain.InteractionPair{}, false
	}
	sort.Strings(shared)

	first, second := domain.CanonicalPair(idA, idB)
	return domain.InteractionPair{
		ItemA:          first,
		ItemB:          second,
		Type:           domain.InteractionSynergistic,
		Severity:       domain.SeverityMinor,
		Mechanism:      "Shared target pathway: " + strings.Join(shared, ", "),
		Recommendation: "Theoretical overlap only; watch for a stronger combined effect",
		Basis:          domain.BasisTheoretical,
		EvidenceLevel:  domain.EvidenceWeak,
	}, true
}

// Analyze returns the interaction between two catalog items, or nil when none
// is found. The result does not depend on argument order.
func (a *InteractionAnalyzer) Analyze(idA, idB string) (*domain.InteractionPair, error) {
	var missing []string
	for _, id := range []string{idA, idB} {
		if !a.catalog.Contains(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.NotFoundError{IDs: missing}
	}
	if idA == idB {
		return nil, fmt.Errorf("%w: cannot analyze %s against itself", domain.ErrInvalidRequest, idA)
	}
	return a.lookup(idA, idB), nil
}

// lookup assumes both ids are known and distinct
func (a *InteractionAnalyzer) lookup(idA, idB string) *domain.InteractionPair {
	if pair, ok := a.declared[domain.PairKey(idA, idB)]; ok {
		pair.Monitoring = append([]domain.MonitoringRequirement(nil), pair.Monitoring...)
		return &pair
	}
	if pair, ok := a.inferredPair(idA, idB); ok {
		return &pair
	}
	return nil
}

// splitKnown dedupes ids in order and separates those missing from the catalog
func (a *InteractionAnalyzer) splitKnown(ids []string) (known, unknown []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if a.catalog.Contains(id) {
			known = append(known, id)
		} else {
			unknown = append(unknown, id)
		}
	}
	return known, unknown
}

// AnalyzeSet evaluates every unordered pair of the known ids. Unknown ids are
// dropped from the scan and reported in the matrix; the call only fails when
// none of the ids are known.
func (a *InteractionAnalyzer) AnalyzeSet(ctx context.Context, ids []string) (*domain.InteractionMatrix, error) {
	if err := validateItemIDs(ids, 2); err != nil {
		return nil, err
	}

	known, unknown := a.splitKnown(ids)
	if len(known) == 0 {
		return nil, &domain.NotFoundError{IDs: unknown}
	}

	pairs, err := a.scanPairs(ctx, known)
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		metrics.RecordInteraction(string(p.Severity), string(p.Basis))
	}

	matrix := &domain.InteractionMatrix{
		ID:              uuid.NewString(),
		Items:           known,
		UnknownItems:    unknown,
		Interactions:    pairs,
		Risk:            AssessRisk(pairs),
		Recommendations: BuildInteractionRecommendations(pairs),
		EvidenceSource:  domain.EvidenceLocalOnly,
		GeneratedAt:     time.Now().UTC(),
	}

	logging.Ctx(ctx).Info().
		Str("component", "interaction_analyzer").
		Int("items", len(known)).
		Int("unknown", len(unknown)).
		Int("interactions", len(pairs)).
		Str("risk", string(matrix.Risk.OverallRisk)).
		Msg("Interaction set analyzed")

	return matrix, nil
}

// scanPairs fans out over the N·(N−1)/2 pairs; results keep scan order
func (a *InteractionAnalyzer) scanPairs(ctx context.Context, ids []string) ([]domain.InteractionPair, error) {
	type job struct{ a, b string }
	var jobs []job
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			jobs = append(jobs, job{ids[i], ids[j]})
		}
	}

	slots := make([]*domain.InteractionPair, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i, jb := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = a.lookup(jb.a, jb.b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pairs := make([]domain.InteractionPair, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			pairs = append(pairs, *p)
		}
	}
	return pairs, nil
}

// InteractionsWith returns the interactions between itemID and each of others.
// Unknown ids and itemID itself are skipped.
func (a *InteractionAnalyzer) InteractionsWith(itemID string, others []string) []domain.InteractionPair {
	if !a.catalog.Contains(itemID) {
		return nil
	}
	var pairs []domain.InteractionPair
	seen := make(map[string]bool, len(others))
	for _, other := range others {
		if other == itemID || seen[other] || !a.catalog.Contains(other) {
			continue
		}
		seen[other] = true
		if p := a.lookup(itemID, other); p != nil {
			pairs = append(pairs, *p)
		}
	}
	return pairs
}

// CheckMedications matches declared rules on the given items against medication
// names and active ingredients
func (a *InteractionAnalyzer) CheckMedications(ids []string, medications []domain.Medication) ([]domain.MedicationInteraction, []string, error) {
	if err := validateItemIDs(ids, 1); err != nil {
		return nil, nil, err
	}
	if len(medications) == 0 {
		return nil, nil, &domain.FieldError{Kind: domain.ErrInvalidRequest, Field: "medications", Reason: "at least one medication required"}
	}

	known, unknown := a.splitKnown(ids)
	if len(known) == 0 {
		return nil, nil, &domain.NotFoundError{IDs: unknown}
	}

	var found []domain.MedicationInteraction
	for _, id := range known {
		item, _ := a.catalog.GetByID(id)
		for _, med := range medications {
			rule, ok := medicationRule(item, med)
			if !ok {
				continue
			}
			severity, ok := mapDeclaredSeverity(rule.Severity)
			if !ok {
				severity = domain.SeverityModerate
			}
			found = append(found, domain.MedicationInteraction{
				ItemID:         id,
				Medication:     med.Name,
				Type:           mapDeclaredType(rule.Type),
				Severity:       severity,
				Mechanism:      rule.Mechanism,
				Recommendation: rule.Recommendation,
			})
		}
	}
	return found, unknown, nil
}

// SafetySummary lists contraindicated pairs as critical and major pairs as warnings
func (a *InteractionAnalyzer) SafetySummary(ctx context.Context, ids []string) (*domain.SafetySummary, error) {
	matrix, err := a.AnalyzeSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := &domain.SafetySummary{
		Critical:        []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}
	for _, p := range matrix.Interactions {
		line := fmt.Sprintf("%s + %s: %s", p.ItemA, p.ItemB, p.Mechanism)
		switch p.Severity {
		case domain.SeverityContraindicated:
			summary.Critical = append(summary.Critical, line)
		case domain.SeverityMajor:
			summary.Warnings = append(summary.Warnings, line)
		}
	}
	for _, r := range matrix.Recommendations {
		summary.Recommendations = append(summary.Recommendations, r.Recommendation)
	}
	return summary, nil
}
