package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
)

const (
	defaultRequestsPerHour = 1000
	defaultBurst           = 10
	defaultMaxAttempts     = 3
	defaultBreakerFailures = 5
	defaultHTTPTimeout     = 10 * time.Second
	breakerOpenTimeout     = 30 * time.Second
)

// errNoEvidence marks a substance/condition pair the service has no record of.
// It is not a service failure and does not count against the breaker.
var errNoEvidence = errors.New("no published evidence")

// Config holds configuration for the research client
type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RequestsPerHour int
	BreakerFailures uint32
	MaxAttempts     int
}

// Client talks to the research evidence API. Requests are rate limited,
// retried on transient failures and guarded by a circuit breaker.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*domain.EvidenceSummary]
	maxAttempts int
	backoff     func(attempt int) time.Duration
	log         zerolog.Logger
}

// NewClient creates a new research API client
func NewClient(cfg Config) *Client {
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = defaultRequestsPerHour
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerHour)/3600), defaultBurst),
		maxAttempts: cfg.MaxAttempts,
		backoff:     exponentialBackoff,
		log:         logging.Component("research"),
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[*domain.EvidenceSummary](gobreaker.Settings{
		Name:    "research",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoEvidence) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return c
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// LookupEvidence returns the study count and evidence level the research
// service reports for substance and condition
func (c *Client) LookupEvidence(ctx context.Context, substance, condition string) (*domain.EvidenceSummary, error) {
	summary, err := c.breaker.Execute(func() (*domain.EvidenceSummary, error) {
		return c.fetch(ctx, substance, condition)
	})
	if err == nil {
		return summary, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordResearchLookup("breaker_open")
		return nil, fmt.Errorf("%w: %v", domain.ErrResearchUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, err
	case errors.Is(err, errNoEvidence):
		return nil, fmt.Errorf("%w: %s", domain.ErrResearchUnavailable, err)
	}
	metrics.RecordResearchLookup("error")
	return nil, err
}

func (c *Client) fetch(ctx context.Context, substance, condition string) (*domain.EvidenceSummary, error) {
	params := url.Values{}
	params.Set("substance", substance)
	if condition != "" {
		params.Set("condition", condition)
	}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/v1/evidence?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		summary, retry, err := c.do(ctx, reqURL)
		if err == nil {
			return summary, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !retry {
			return nil, err
		}
		c.log.Debug().Err(err).Int("attempt", attempt).Str("substance", substance).Msg("Research request failed, retrying")
		lastErr = err
	}

	return nil, lastErr
}

// do executes one request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, reqURL string) (summary *domain.EvidenceSummary, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Suplementor/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrResearchUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading body: %v", domain.ErrResearchUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errNoEvidence
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrResearchUnavailable, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w: status %d: %s", domain.ErrResearchUnavailable, resp.StatusCode, truncate(body, 200))
	}

	var payload evidenceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrResearchUnavailable, err)
	}
	return mapToEvidenceSummary(&payload), false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
