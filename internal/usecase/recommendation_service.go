package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
)

const (
	defaultMaxResults      = 5
	defaultMaxResultsLimit = 25
	defaultResearchTimeout = 2 * time.Second
	researchParallelism    = 4
)

// RecommendationConfig holds configuration for the recommendation service
type RecommendationConfig struct {
	DefaultMaxResults int
	MaxResultsLimit   int
	ResearchTimeout   time.Duration
}

// RecommendationService ranks catalog items for a profile and packages each
// into a fully explained result
type RecommendationService struct {
	catalog  *CatalogIndex
	scorer   *Scorer
	analyzer *InteractionAnalyzer
	evidence domain.EvidenceClient
	config   RecommendationConfig
}

// NewRecommendationService creates a new recommendation service. evidence may
// be nil, in which case every response is local-only.
func NewRecommendationService(
	catalog *CatalogIndex,
	scorer *Scorer,
	analyzer *InteractionAnalyzer,
	evidence domain.EvidenceClient,
	config RecommendationConfig,
) *RecommendationService {
	if config.DefaultMaxResults <= 0 {
		config.DefaultMaxResults = defaultMaxResults
	}
	if config.MaxResultsLimit <= 0 {
		config.MaxResultsLimit = defaultMaxResultsLimit
	}
	if config.ResearchTimeout <= 0 {
		config.ResearchTimeout = defaultResearchTimeout
	}

	return &RecommendationService{
		catalog:  catalog,
		scorer:   scorer,
		analyzer: analyzer,
		evidence: evidence,
		config:   config,
	}
}

// Recommend returns the highest scoring items for the profile, best first.
// Flow: validate -> score -> refresh evidence -> rescore -> assemble
func (s *RecommendationService) Recommend(ctx context.Context, req *domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	limit, err := s.resultLimit(req.MaxResults)
	if err != nil {
		return nil, err
	}

	profile := &req.Profile
	ranked, err := s.scorer.Rank(ctx, profile)
	if err != nil {
		return nil, err
	}

	source := domain.EvidenceLocalOnly
	if s.evidence != nil && len(ranked) > 0 {
		ranked, source = s.refreshEvidence(ctx, profile, ranked)
	}

	var unknown []string
	for _, id := range profile.CurrentItems {
		if !s.catalog.Contains(id) {
			unknown = append(unknown, id)
		}
	}

	top := ranked
	if len(top) > limit {
		top = top[:limit]
	}

	builder := &resultBuilder{
		profile:   profile,
		overrides: newOverrideTable(profile.RatingOverrides),
		analyzer:  s.analyzer,
		ranked:    ranked,
		source:    source,
	}
	results := make([]domain.RecommendationResult, 0, len(top))
	for _, c := range top {
		results = append(results, builder.build(c))
	}

	metrics.RecommendationsReturned.Add(float64(len(results)))

	logging.Ctx(ctx).Info().
		Str("component", "recommendation_service").
		Int("ranked", len(ranked)).
		Int("returned", len(results)).
		Str("evidence_source", string(source)).
		Msg("Recommendations assembled")

	return &domain.RecommendationResponse{
		ID:                  uuid.NewString(),
		Results:             results,
		UnknownCurrentItems: unknown,
		EvidenceSource:      source,
		GeneratedAt:         time.Now().UTC(),
	}, nil
}

func (s *RecommendationService) resultLimit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, &domain.FieldError{Kind: domain.ErrInvalidRequest, Field: "maxResults", Reason: fmt.Sprintf("must not be negative, got %d", requested)}
	case requested == 0:
		return s.config.DefaultMaxResults, nil
	case requested > s.config.MaxResultsLimit:
		return s.config.MaxResultsLimit, nil
	}
	return requested, nil
}

// refreshEvidence asks the research collaborator about every ranked candidate
// under one deadline. Candidates with a fresh summary are rescored. Any failed
// lookup downgrades the response to local-only; the request itself never fails.
func (s *RecommendationService) refreshEvidence(ctx context.Context, profile *domain.UserProfile, ranked []ScoredCandidate) ([]ScoredCandidate, domain.EvidenceSource) {
	rctx, cancel := context.WithTimeout(ctx, s.config.ResearchTimeout)
	defer cancel()

	summaries := make([]*domain.EvidenceSummary, len(ranked))
	failures := make([]error, len(ranked))

	var g errgroup.Group
	g.SetLimit(researchParallelism)
	for i, c := range ranked {
		g.Go(func() error {
			summary, err := s.evidence.LookupEvidence(rctx, c.Item.Name, lookupCondition(profile, c.Item))
			if err == nil && summary == nil {
				err = domain.ErrResearchUnavailable
			}
			summaries[i], failures[i] = summary, err
			return nil
		})
	}
	_ = g.Wait()

	source := domain.EvidenceCorroborated
	log := logging.Ctx(ctx)
	for i, err := range failures {
		if err == nil {
			continue
		}
		source = domain.EvidenceLocalOnly
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordResearchLookup("timeout")
		}
		log.Warn().Err(err).Str("item_id", ranked[i].Item.ID).Msg("Evidence lookup failed, using local data")
	}

	refreshed := make([]ScoredCandidate, 0, len(ranked))
	for i, c := range ranked {
		if summaries[i] == nil {
			refreshed = append(refreshed, c)
			continue
		}
		item := withEvidence(c.Item, summaries[i])
		rescored := s.scorer.ScoreItem(profile, item)
		if rescored.Score > s.scorer.Threshold() {
			refreshed = append(refreshed, rescored)
		}
	}
	SortCandidates(refreshed)

	return refreshed, source
}

// withEvidence returns a copy of item carrying the fresher evidence. Study counts
// never go down; an unrecognized level keeps the catalog level.
func withEvidence(item *domain.CatalogItem, summary *domain.EvidenceSummary) *domain.CatalogItem {
	copied := *item
	if summary.StudyCount > copied.ClinicalEvidence.TotalStudies {
		copied.ClinicalEvidence.TotalStudies = summary.StudyCount
	}
	if level, ok := domain.ParseEvidenceLevel(string(summary.EvidenceLevel)); ok {
		copied.EvidenceLevel = level
	}
	return &copied
}

// lookupCondition picks the condition to ask the research service about:
// the first matched goal, then the first matched condition, then the item's
// first clinical application
func lookupCondition(profile *domain.UserProfile, item *domain.CatalogItem) string {
	for _, g := range profile.HealthGoals {
		for _, app := range item.ClinicalApplications {
			if applicationMatches(app, g.Goal, g.LocalizedGoal) {
				return app.Condition
			}
		}
	}
	for _, cond := range profile.HealthConditions {
		for _, app := range item.ClinicalApplications {
			if applicationMatches(app, cond) {
				return app.Condition
			}
		}
	}
	if len(item.ClinicalApplications) > 0 {
		return item.ClinicalApplications[0].Condition
	}
	return ""
}
