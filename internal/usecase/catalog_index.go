package usecase

import (
	"fmt"
	"strings"

	"github.com/suplementor/backend/internal/domain"
)

// CatalogIndex is a read-only, searchable view over the supplement catalog.
// It is built once at startup and shared by every request without locking.
type CatalogIndex struct {
	items      []domain.CatalogItem
	byID       map[string]int
	byCategory map[domain.Category][]int
	tokens     [][]string
}

// BuildCatalogIndex indexes items in insertion order. It fails fast on a
// duplicate identifier; per-record validation happens in the catalog source.
func BuildCatalogIndex(items []domain.CatalogItem) (*CatalogIndex, error) {
	idx := &CatalogIndex{
		items:      make([]domain.CatalogItem, len(items)),
		byID:       make(map[string]int, len(items)),
		byCategory: make(map[domain.Category][]int),
		tokens:     make([][]string, len(items)),
	}
	copy(idx.items, items)

	for i := range idx.items {
		item := &idx.items[i]
		if _, exists := idx.byID[item.ID]; exists {
			return nil, &domain.CatalogLoadError{
				Index:  i,
				ID:     item.ID,
				Field:  "id",
				Reason: "duplicate identifier",
				Err:    domain.ErrDuplicateID,
			}
		}
		idx.byID[item.ID] = i
		idx.byCategory[item.Category] = append(idx.byCategory[item.Category], i)
		idx.tokens[i] = searchTokens(item)
	}

	return idx, nil
}

// Len returns the number of indexed items
func (x *CatalogIndex) Len() int {
	return len(x.items)
}

// All returns every item in catalog order
func (x *CatalogIndex) All() []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(x.items))
	copy(out, x.items)
	return out
}

// GetByID returns the item or an error wrapping domain.ErrNotFound
func (x *CatalogIndex) GetByID(id string) (*domain.CatalogItem, error) {
	i, ok := x.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return &x.items[i], nil
}

// Contains reports whether id is in the catalog
func (x *CatalogIndex) Contains(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// Search returns the items matching every set filter, in catalog order
func (x *CatalogIndex) Search(filters domain.SearchFilters) []domain.CatalogItem {
	candidates := x.candidatePositions(filters.Categories)
	term := normalizeText(filters.Term)

	var levels map[domain.EvidenceLevel]bool
	if len(filters.EvidenceLevels) > 0 {
		levels = make(map[domain.EvidenceLevel]bool, len(filters.EvidenceLevels))
		for _, l := range filters.EvidenceLevels {
			levels[l] = true
		}
	}

	results := make([]domain.CatalogItem, 0, len(candidates))
	for _, pos := range candidates {
		item := &x.items[pos]

		if levels != nil && !levels[item.EvidenceLevel] {
			continue
		}
		if term != "" && !tokensContain(x.tokens[pos], term) {
			continue
		}
		if filters.MinEffectiveness != nil && item.AverageEffectiveness() < *filters.MinEffectiveness {
			continue
		}
		if filters.MaxMonthlyCost != nil && item.Economics.AverageMonthlyCost > *filters.MaxMonthlyCost {
			continue
		}
		if !matchesSafety(item, filters) {
			continue
		}
		if len(filters.Mechanisms) > 0 && !hasMechanism(item, filters.Mechanisms) {
			continue
		}
		if len(filters.Conditions) > 0 && !hasCondition(item, filters.Conditions) {
			continue
		}
		results = append(results, *item)
	}

	return results
}

// candidatePositions narrows the scan by category and keeps catalog order
func (x *CatalogIndex) candidatePositions(categories []domain.Category) []int {
	if len(categories) == 0 {
		all := make([]int, len(x.items))
		for i := range all {
			all[i] = i
		}
		return all
	}

	wanted := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	var positions []int
	for i := range x.items {
		if wanted[x.items[i].Category] {
			positions = append(positions, i)
		}
	}
	return positions
}

func tokensContain(tokens []string, term string) bool {
	for _, t := range tokens {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

func matchesSafety(item *domain.CatalogItem, f domain.SearchFilters) bool {
	if f.PregnancySafe {
		switch strings.ToUpper(item.Safety.PregnancyCategory) {
		case "A", "B":
		default:
			return false
		}
	}
	if f.BreastfeedingSafe && !strings.EqualFold(item.Safety.BreastfeedingSafety, "safe") {
		return false
	}
	if f.PediatricApproved && !item.Safety.PediatricApproved {
		return false
	}
	return true
}

func hasMechanism(item *domain.CatalogItem, filters []string) bool {
	for _, m := range item.Mechanisms {
		if containsAny(m.Pathway, filters) || containsAny(m.LocalizedPathway, filters) {
			return true
		}
	}
	return false
}

func hasCondition(item *domain.CatalogItem, filters []string) bool {
	for _, app := range item.ClinicalApplications {
		if containsAny(app.Condition, filters) || containsAny(app.LocalizedCondition, filters) {
			return true
		}
	}
	return false
}
