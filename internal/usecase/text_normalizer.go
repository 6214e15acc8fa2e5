package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/suplementor/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	separatorRegex      = regexp.MustCompile(`[_\-/]+`)
)

// normalizeText lower-cases s and collapses whitespace
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = multipleSpacesRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeTag folds tag spellings ("Nervous-System", "nervous_system") into one form
func normalizeTag(s string) string {
	return normalizeText(separatorRegex.ReplaceAllString(s, " "))
}

// searchTokens builds the lower-cased token set for one item.
// Tokens are whole phrases so a multi-word term can still match as a substring.
func searchTokens(item *domain.CatalogItem) []string {
	set := make(map[string]bool)
	add := func(values ...string) {
		for _, v := range values {
			if n := normalizeText(v); n != "" {
				set[n] = true
			}
		}
	}

	add(item.ID, item.Name, item.LocalizedName)
	for _, c := range item.ActiveCompounds {
		add(c.Name, c.LocalizedName)
	}
	for _, app := range item.ClinicalApplications {
		add(app.Condition, app.LocalizedCondition)
	}
	for _, m := range item.Mechanisms {
		add(m.Pathway, m.LocalizedPathway)
	}
	add(item.Tags...)

	tokens := make([]string, 0, len(set))
	for t := range set {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// targetSystems returns the normalized, de-duplicated mechanism target tags of an item
func targetSystems(item *domain.CatalogItem) map[string]bool {
	systems := make(map[string]bool)
	for _, m := range item.Mechanisms {
		for _, s := range m.TargetSystems {
			if n := normalizeTag(s); n != "" {
				systems[n] = true
			}
		}
	}
	return systems
}

// containsAny reports whether any needle is a substring of haystack (both normalized)
func containsAny(haystack string, needles []string) bool {
	h := normalizeText(haystack)
	for _, n := range needles {
		if n = normalizeText(n); n != "" && strings.Contains(h, n) {
			return true
		}
	}
	return false
}

// applicationMatches reports whether a clinical application addresses the given goal text
func applicationMatches(app domain.ClinicalApplication, texts ...string) bool {
	for _, t := range texts {
		if domain.MatchesText(app.Condition, t) || domain.MatchesText(app.LocalizedCondition, t) {
			return true
		}
	}
	return false
}
