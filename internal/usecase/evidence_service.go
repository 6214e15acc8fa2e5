package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// EvidenceServiceConfig holds configuration for the evidence service
type EvidenceServiceConfig struct {
	CacheTTL time.Duration
}

// EvidenceService looks up published evidence with caching.
// It satisfies domain.EvidenceClient so callers cannot tell it from the raw client.
type EvidenceService struct {
	cache    domain.CacheRepository
	client   domain.EvidenceClient
	cacheTTL time.Duration
}

// NewEvidenceService creates a new evidence service with dependencies
func NewEvidenceService(cache domain.CacheRepository, client domain.EvidenceClient, config EvidenceServiceConfig) *EvidenceService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 168 * time.Hour // Default 7 days
	}

	return &EvidenceService{
		cache:    cache,
		client:   client,
		cacheTTL: cacheTTL,
	}
}

// LookupEvidence returns the evidence summary for a substance and condition.
// Flow: check cache -> call research service -> cache -> return
func (s *EvidenceService) LookupEvidence(ctx context.Context, substance, condition string) (*domain.EvidenceSummary, error) {
	if strings.TrimSpace(substance) == "" {
		return nil, fmt.Errorf("%w: substance is required", domain.ErrInvalidRequest)
	}

	cacheKey := evidenceCacheKey(substance, condition)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		metrics.RecordResearchLookup("hit")
		return cached, nil
	}
	metrics.RecordResearchLookup("miss")

	summary, err := s.client.LookupEvidence(ctx, substance, condition)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache evidence summary")
	}

	return summary, nil
}

// evidenceCacheKey creates a normalized cache key.
// Format: "evidence:{substance}:{condition}"
func evidenceCacheKey(substance, condition string) string {
	return fmt.Sprintf("evidence:%s:%s", normalizeForCacheKey(substance), normalizeForCacheKey(condition))
}

// normalizeForCacheKey lower-cases s, drops punctuation and collapses whitespace
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a summary from cache. Caches that serialize values
// hand back a decoded JSON map, which is converted back to the struct.
func (s *EvidenceService) getFromCache(ctx context.Context, key string) (*domain.EvidenceSummary, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case *domain.EvidenceSummary:
		return v, nil
	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, domain.ErrCacheMiss
		}
		var summary domain.EvidenceSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return nil, domain.ErrCacheMiss
		}
		return &summary, nil
	default:
		return nil, domain.ErrCacheMiss
	}
}
