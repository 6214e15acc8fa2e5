package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/suplementor/backend/config"
	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/infrastructure/catalogsource"
	"github.com/suplementor/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
		Cache: config.CacheConfig{Type: "memory"},
	}
}

// recordingExporter captures exported graphs
type recordingExporter struct {
	mu     sync.Mutex
	graphs []*domain.InteractionGraph
}

func (r *recordingExporter) ExportGraph(ctx context.Context, graph *domain.InteractionGraph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs = append(r.graphs, graph)
	return nil
}

func (r *recordingExporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.graphs)
}

// setupTestRouterWithExporter wires real services over the bundled catalog
func setupTestRouterWithExporter(t *testing.T, exporter domain.GraphExporter) *gin.Engine {
	t.Helper()

	result, err := catalogsource.NewFileSource("../../../data/catalog.yaml").Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	idx, err := usecase.BuildCatalogIndex(result.Items)
	if err != nil {
		t.Fatalf("failed to index catalog: %v", err)
	}

	analyzer := usecase.NewInteractionAnalyzer(idx)
	scorer := usecase.NewScorer(idx, usecase.ScoringConfig{InclusionThreshold: 30})
	recommender := usecase.NewRecommendationService(idx, scorer, analyzer, nil, usecase.RecommendationConfig{})
	graphs := usecase.NewGraphService(idx, analyzer, exporter)

	return SetupRouter(testConfig(), NewHandler(idx, recommender, analyzer, graphs))
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupTestRouterWithExporter(t, nil)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(t)

		w := doJSON(router, "GET", "/health", "")
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		decode(t, w, &response)

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "suplementor-backend" {
			t.Errorf("service = %v, want suplementor-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
		if items, _ := response["catalogItems"].(float64); items < 8 {
			t.Errorf("catalogItems = %v, want at least 8", response["catalogItems"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(t)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestSupplementEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("lists the whole catalog without filters", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response struct {
			Items []domain.CatalogItem `json:"items"`
			Total int                  `json:"total"`
		}
		decode(t, w, &response)
		if response.Total != len(response.Items) || response.Total < 8 {
			t.Errorf("total = %d, items = %d", response.Total, len(response.Items))
		}
	})

	t.Run("filters by category list", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements?category=mineral,VITAMIN", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response struct {
			Items []domain.CatalogItem `json:"items"`
		}
		decode(t, w, &response)
		if len(response.Items) == 0 {
			t.Fatal("expected mineral and vitamin items")
		}
		for _, item := range response.Items {
			if item.Category != domain.CategoryMineral && item.Category != domain.CategoryVitamin {
				t.Errorf("item %s has category %s", item.ID, item.Category)
			}
		}
	})

	t.Run("filters by pediatric approval and cost", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements?pediatric=true&maxCost=15", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response struct {
			Items []domain.CatalogItem `json:"items"`
		}
		decode(t, w, &response)
		for _, item := range response.Items {
			if !item.Safety.PediatricApproved || item.Economics.AverageMonthlyCost > 15 {
				t.Errorf("item %s does not satisfy filters", item.ID)
			}
		}
	})

	t.Run("rejects malformed numeric filter", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements?minEffectiveness=high", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var response map[string]interface{}
		decode(t, w, &response)
		if response["field"] != "minEffectiveness" {
			t.Errorf("field = %v, want minEffectiveness", response["field"])
		}
	})

	t.Run("rejects malformed boolean filter", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements?pregnancySafe=maybe", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns one item by id", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements/zinc", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var item domain.CatalogItem
		decode(t, w, &item)
		if item.ID != "zinc" || item.Name != "Zinc" {
			t.Errorf("item = %s/%s, want zinc/Zinc", item.ID, item.Name)
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/supplements/unicorn-horn", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestRecommendationEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("ranks items for a memory goal", func(t *testing.T) {
		payload := `{"profile":{"age":35,"healthGoals":[{"goal":"memory","priority":"high"}]},"maxResults":3}`
		w := doJSON(router, "POST", "/api/v1/recommendations", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response domain.RecommendationResponse
		decode(t, w, &response)
		if len(response.Results) == 0 || len(response.Results) > 3 {
			t.Fatalf("results = %d, want 1..3", len(response.Results))
		}
		if response.Results[0].Item.ID != "bacopa-monnieri" {
			t.Errorf("top result = %s, want bacopa-monnieri", response.Results[0].Item.ID)
		}
		for i := 1; i < len(response.Results); i++ {
			if response.Results[i].Score > response.Results[i-1].Score {
				t.Errorf("results not sorted at %d", i)
			}
		}
		if response.EvidenceSource != domain.EvidenceLocalOnly {
			t.Errorf("evidenceSource = %s, want %s", response.EvidenceSource, domain.EvidenceLocalOnly)
		}
	})

	t.Run("returns 400 with field for invalid profile", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/recommendations", `{"profile":{"age":200}}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var response map[string]interface{}
		decode(t, w, &response)
		if response["field"] == nil {
			t.Error("expected field in response")
		}
	})

	t.Run("returns 400 for negative maxResults", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/recommendations", `{"profile":{"age":30},"maxResults":-1}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/recommendations", `{invalid json}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestInteractionEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("analyzes a set and reports unknown ids", func(t *testing.T) {
		payload := `{"itemIds":["ginkgo-biloba","omega-3","ghost"]}`
		w := doJSON(router, "POST", "/api/v1/interactions", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var matrix domain.InteractionMatrix
		decode(t, w, &matrix)
		if len(matrix.Interactions) != 1 {
			t.Fatalf("interactions = %d, want 1", len(matrix.Interactions))
		}
		if matrix.Interactions[0].Severity != domain.SeverityModerate {
			t.Errorf("severity = %s, want moderate", matrix.Interactions[0].Severity)
		}
		if len(matrix.UnknownItems) != 1 || matrix.UnknownItems[0] != "ghost" {
			t.Errorf("unknownItems = %v, want [ghost]", matrix.UnknownItems)
		}
	})

	t.Run("rejects a single item", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/interactions", `{"itemIds":["zinc"]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var response map[string]interface{}
		decode(t, w, &response)
		if response["field"] != "itemIds" {
			t.Errorf("field = %v, want itemIds", response["field"])
		}
	})

	t.Run("returns 404 with ids when nothing is known", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/interactions", `{"itemIds":["ghost","phantom"]}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
		var response struct {
			IDs []string `json:"ids"`
		}
		decode(t, w, &response)
		if len(response.IDs) != 2 {
			t.Errorf("ids = %v, want both unknown ids", response.IDs)
		}
	})

	t.Run("pair lookup is order independent", func(t *testing.T) {
		var first, second struct {
			Interaction *domain.InteractionPair `json:"interaction"`
		}
		decode(t, doJSON(router, "GET", "/api/v1/interactions/magnesium-glycinate/zinc", ""), &first)
		decode(t, doJSON(router, "GET", "/api/v1/interactions/zinc/magnesium-glycinate", ""), &second)

		if first.Interaction == nil || second.Interaction == nil {
			t.Fatal("expected an interaction for magnesium and zinc")
		}
		if first.Interaction.ItemA != second.Interaction.ItemA || first.Interaction.Severity != second.Interaction.Severity {
			t.Errorf("pair differs by order: %+v vs %+v", first.Interaction, second.Interaction)
		}
	})

	t.Run("pair against itself is a bad request", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/interactions/zinc/zinc", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("safety summary lists severe pairs as critical", func(t *testing.T) {
		payload := `{"itemIds":["st-johns-wort","ashwagandha","zinc"]}`
		w := doJSON(router, "POST", "/api/v1/interactions/safety-summary", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		var summary domain.SafetySummary
		decode(t, w, &summary)
		if len(summary.Critical) != 0 {
			t.Errorf("critical = %v, want none for a minor pair", summary.Critical)
		}
	})

	t.Run("checks medications by name", func(t *testing.T) {
		payload := `{"itemIds":["ginkgo-biloba","zinc","ghost"],"medications":[{"name":"Warfarin"}]}`
		w := doJSON(router, "POST", "/api/v1/interactions/medications", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		var response struct {
			Interactions []domain.MedicationInteraction `json:"interactions"`
			UnknownItems []string                       `json:"unknownItems"`
		}
		decode(t, w, &response)
		if len(response.Interactions) != 1 {
			t.Fatalf("interactions = %d, want 1", len(response.Interactions))
		}
		got := response.Interactions[0]
		if got.ItemID != "ginkgo-biloba" || got.Severity != domain.SeverityContraindicated {
			t.Errorf("interaction = %+v, want ginkgo-biloba contraindicated", got)
		}
		if len(response.UnknownItems) != 1 || response.UnknownItems[0] != "ghost" {
			t.Errorf("unknownItems = %v, want [ghost]", response.UnknownItems)
		}
	})

	t.Run("medication check requires medications", func(t *testing.T) {
		w := doJSON(router, "POST", "/api/v1/interactions/medications", `{"itemIds":["zinc"]}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestGraphEndpoint(t *testing.T) {
	t.Run("builds and exports the graph", func(t *testing.T) {
		exporter := &recordingExporter{}
		router := setupTestRouterWithExporter(t, exporter)

		payload := `{"itemIds":["magnesium-glycinate","zinc","vitamin-d3"],"layout":"circular"}`
		w := doJSON(router, "POST", "/api/v1/interactions/graph", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var graph domain.InteractionGraph
		decode(t, w, &graph)
		if len(graph.Nodes) != 3 {
			t.Errorf("nodes = %d, want 3", len(graph.Nodes))
		}
		if graph.Layout != domain.Layout("circular") {
			t.Errorf("layout = %s, want circular", graph.Layout)
		}
		if exporter.count() != 1 {
			t.Errorf("exported graphs = %d, want 1", exporter.count())
		}
	})

	t.Run("rejects unknown layout", func(t *testing.T) {
		router := setupTestRouter(t)

		payload := `{"itemIds":["magnesium-glycinate","zinc"],"layout":"spiral"}`
		w := doJSON(router, "POST", "/api/v1/interactions/graph", payload)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var response map[string]interface{}
		decode(t, w, &response)
		if response["field"] != "layout" {
			t.Errorf("field = %v, want layout", response["field"])
		}
	})
}

func TestUnconfiguredServices(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil, nil, nil))

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/supplements"},
		{"GET", "/api/v1/supplements/zinc"},
		{"POST", "/api/v1/recommendations"},
		{"POST", "/api/v1/interactions"},
		{"POST", "/api/v1/interactions/graph"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			w := doJSON(router, endpoint.method, endpoint.path, "{}")
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
			}
			var response map[string]interface{}
			decode(t, w, &response)
			if msg, _ := response["error"].(string); !strings.Contains(msg, "not configured") {
				t.Errorf("error = %q, want to contain 'not configured'", msg)
			}
		})
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router := setupTestRouter(t)

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdefghijklmnop" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
		}
	})

	t.Run("recommendations endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter(t)

		req, _ := http.NewRequest("POST", "/api/v1/recommendations", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter(t)
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doJSON(router, "GET", "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var response map[string]interface{}
	decode(t, w, &response)
	if response["error"] != "internal server error" {
		t.Errorf("error = %v, want internal server error", response["error"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	doJSON(router, "GET", "/health", "")

	w := doJSON(router, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "suplementor_") {
		t.Error("expected suplementor metrics in exposition")
	}
}

// TestJSONResponses tests that API responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/supplements"},
		{"POST", "/api/v1/recommendations"},
		{"POST", "/api/v1/interactions"},
	}

	router := setupTestRouter(t)
	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			w := doJSON(router, endpoint.method, endpoint.path, "")

			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want application/json; charset=utf-8", got)
			}
			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
