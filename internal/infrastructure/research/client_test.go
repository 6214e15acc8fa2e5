package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suplementor/backend/internal/domain"
)

func newTestClient(t *testing.T, url string, cfg Config) *Client {
	t.Helper()
	cfg.APIKey = "test-api-key"
	cfg.BaseURL = url
	c := NewClient(cfg)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "k", BaseURL: "https://research.example.com/"})

	assert.Equal(t, "k", client.apiKey)
	assert.Equal(t, "https://research.example.com", client.baseURL)
	assert.Equal(t, defaultMaxAttempts, client.maxAttempts)
	assert.NotNil(t, client.rateLimiter)
	assert.NotNil(t, client.breaker)
	assert.Equal(t, defaultHTTPTimeout, client.httpClient.Timeout)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
	}
}

func TestLookupEvidence_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/evidence", r.URL.Path)
		assert.Equal(t, "Bacopa Monnieri", r.URL.Query().Get("substance"))
		assert.Equal(t, "Memory enhancement", r.URL.Query().Get("condition"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"studyCount": 142, "evidenceLevel": "Strong"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	got, err := client.LookupEvidence(context.Background(), "Bacopa Monnieri", "Memory enhancement")

	require.NoError(t, err)
	assert.Equal(t, 142, got.StudyCount)
	assert.Equal(t, domain.EvidenceStrong, got.EvidenceLevel)
}

func TestLookupEvidence_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	_, err := client.LookupEvidence(context.Background(), "Unobtainium", "")

	assert.ErrorIs(t, err, domain.ErrResearchUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLookupEvidence_RetriesServerErrors(t *testing.T) {
	t.Run("recovers on a later attempt", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"studyCount": 12, "evidenceLevel": "weak"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, Config{})
		got, err := client.LookupEvidence(context.Background(), "Zinc", "Immune support")

		require.NoError(t, err)
		assert.Equal(t, 12, got.StudyCount)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, Config{MaxAttempts: 2})
		_, err := client.LookupEvidence(context.Background(), "Zinc", "")

		assert.ErrorIs(t, err, domain.ErrResearchUnavailable)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("client errors are final", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad key"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, Config{})
		_, err := client.LookupEvidence(context.Background(), "Zinc", "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestLookupEvidence_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	_, err := client.LookupEvidence(context.Background(), "Zinc", "")

	assert.ErrorIs(t, err, domain.ErrResearchUnavailable)
}

func TestLookupEvidence_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{MaxAttempts: 1, BreakerFailures: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.LookupEvidence(ctx, "Zinc", "")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.breaker.State())

	_, err := client.LookupEvidence(ctx, "Zinc", "")
	assert.ErrorIs(t, err, domain.ErrResearchUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestLookupEvidence_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.LookupEvidence(ctx, "Zinc", "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
