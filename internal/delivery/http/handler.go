package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/usecase"
)

const (
	serviceName = "suplementor-backend"
	version     = "1.0.0"
)

// Handler holds dependencies for HTTP handlers. Any service may be nil, in
// which case its endpoints answer 503.
type Handler struct {
	catalog     *usecase.CatalogIndex
	recommender *usecase.RecommendationService
	analyzer    *usecase.InteractionAnalyzer
	graphs      *usecase.GraphService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *usecase.CatalogIndex,
	recommender *usecase.RecommendationService,
	analyzer *usecase.InteractionAnalyzer,
	graphs *usecase.GraphService,
) *Handler {
	return &Handler{
		catalog:     catalog,
		recommender: recommender,
		analyzer:    analyzer,
		graphs:      graphs,
	}
}

type itemIDsRequest struct {
	ItemIDs []string `json:"itemIds"`
}

type medicationsRequest struct {
	ItemIDs     []string            `json:"itemIds"`
	Medications []domain.Medication `json:"medications"`
}

type graphRequest struct {
	ItemIDs []string `json:"itemIds"`
	Layout  string   `json:"layout,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	items := 0
	if h.catalog != nil {
		items = h.catalog.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"version":      version,
		"catalogItems": items,
	})
}

// ListSupplements searches the catalog. Query parameters map onto SearchFilters;
// list parameters accept repeats or comma-separated values.
func (h *Handler) ListSupplements(c *gin.Context) {
	if h.catalog == nil {
		notConfigured(c, "catalog")
		return
	}

	filters, err := parseSearchFilters(c)
	if err != nil {
		writeError(c, err)
		return
	}

	items := h.catalog.Search(filters)
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetSupplement returns one catalog item
func (h *Handler) GetSupplement(c *gin.Context) {
	if h.catalog == nil {
		notConfigured(c, "catalog")
		return
	}

	item, err := h.catalog.GetByID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Recommend ranks catalog items for the posted profile
func (h *Handler) Recommend(c *gin.Context) {
	if h.recommender == nil {
		notConfigured(c, "recommendations")
		return
	}

	var req domain.RecommendationRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.recommender.Recommend(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeInteractions returns the interaction matrix for a set of items
func (h *Handler) AnalyzeInteractions(c *gin.Context) {
	if h.analyzer == nil {
		notConfigured(c, "interactions")
		return
	}

	var req itemIDsRequest
	if !bindJSON(c, &req) {
		return
	}

	matrix, err := h.analyzer.AnalyzeSet(c.Request.Context(), req.ItemIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}

// AnalyzePair returns the interaction between two items, or null when there is none
func (h *Handler) AnalyzePair(c *gin.Context) {
	if h.analyzer == nil {
		notConfigured(c, "interactions")
		return
	}

	pair, err := h.analyzer.Analyze(c.Param("idA"), c.Param("idB"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interaction": pair})
}

// SafetySummary returns the critical and warning lines for a set of items
func (h *Handler) SafetySummary(c *gin.Context) {
	if h.analyzer == nil {
		notConfigured(c, "interactions")
		return
	}

	var req itemIDsRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.analyzer.SafetySummary(c.Request.Context(), req.ItemIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CheckMedications matches declared item rules against the posted medications
func (h *Handler) CheckMedications(c *gin.Context) {
	if h.analyzer == nil {
		notConfigured(c, "interactions")
		return
	}

	var req medicationsRequest
	if !bindJSON(c, &req) {
		return
	}

	found, unknown, err := h.analyzer.CheckMedications(req.ItemIDs, req.Medications)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"interactions": found,
		"unknownItems": unknown,
	})
}

// BuildGraph returns the renderable interaction graph for a set of items
func (h *Handler) BuildGraph(c *gin.Context) {
	if h.graphs == nil {
		notConfigured(c, "graph")
		return
	}

	var req graphRequest
	if !bindJSON(c, &req) {
		return
	}

	graph, err := h.graphs.BuildGraph(c.Request.Context(), req.ItemIDs, domain.Layout(req.Layout))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid JSON body: " + err.Error(),
		})
		return false
	}
	return true
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": what + " service not configured",
	})
}

// writeError maps domain errors onto HTTP responses
func writeError(c *gin.Context, err error) {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "ids": notFound.IDs})
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if errors.Is(err, domain.ErrInvalidProfile) || errors.Is(err, domain.ErrInvalidRequest) {
		body := gin.H{"error": err.Error()}
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			body["field"] = fe.Field
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func parseSearchFilters(c *gin.Context) (domain.SearchFilters, error) {
	f := domain.SearchFilters{
		Term:       c.Query("q"),
		Mechanisms: queryList(c, "mechanism"),
		Conditions: queryList(c, "condition"),
	}
	for _, s := range queryList(c, "category") {
		f.Categories = append(f.Categories, domain.Category(strings.ToLower(s)))
	}
	for _, s := range queryList(c, "evidence") {
		f.EvidenceLevels = append(f.EvidenceLevels, domain.EvidenceLevel(strings.ToLower(s)))
	}

	var err error
	if f.MinEffectiveness, err = queryFloat(c, "minEffectiveness"); err != nil {
		return f, err
	}
	if f.MaxMonthlyCost, err = queryFloat(c, "maxCost"); err != nil {
		return f, err
	}
	if f.PregnancySafe, err = queryBool(c, "pregnancySafe"); err != nil {
		return f, err
	}
	if f.BreastfeedingSafe, err = queryBool(c, "breastfeedingSafe"); err != nil {
		return f, err
	}
	if f.PediatricApproved, err = queryBool(c, "pediatric"); err != nil {
		return f, err
	}
	return f, nil
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &domain.FieldError{Kind: domain.ErrInvalidRequest, Field: key, Reason: "must be a number"}
	}
	return &v, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &domain.FieldError{Kind: domain.ErrInvalidRequest, Field: key, Reason: "must be true or false"}
	}
	return v, nil
}
