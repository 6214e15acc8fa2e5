package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
)

// Node sizing
const (
	nodeBaseSize    = 20.0
	nodeSizePerEdge = 5.0
	nodeMaxSize     = 60.0
)

var categoryColors = map[domain.Category]string{
	domain.CategoryNootropic: "#8B5CF6",
	domain.CategoryFattyAcid: "#10B981",
	domain.CategoryMineral:   "#F59E0B",
	domain.CategoryVitamin:   "#EF4444",
	domain.CategoryHerb:      "#84CC16",
	domain.CategoryAminoAcid: "#06B6D4",
}

const defaultNodeColor = "#6B7280"

// edgeStyle holds the rendering attributes for one severity
type edgeStyle struct {
	riskWeight float64 // contribution to node risk
	weight     float64
	color      string
	thickness  int
}

var edgeStyles = map[domain.Severity]edgeStyle{
	domain.SeverityContraindicated: {riskWeight: 1.0, weight: 1.0, color: "#DC2626", thickness: 6},
	domain.SeverityMajor:           {riskWeight: 0.8, weight: 0.8, color: "#EA580C", thickness: 4},
	domain.SeverityModerate:        {riskWeight: 0.5, weight: 0.6, color: "#D97706", thickness: 3},
	domain.SeverityMinor:           {riskWeight: 0.2, weight: 0.3, color: "#65A30D", thickness: 2},
	domain.SeverityBeneficial:      {riskWeight: -0.3, weight: 0.5, color: "#059669", thickness: 2},
}

// GraphService projects interaction results into a renderable graph
type GraphService struct {
	catalog  *CatalogIndex
	analyzer *InteractionAnalyzer
	exporter domain.GraphExporter
}

// NewGraphService creates a graph service. exporter may be nil.
func NewGraphService(catalog *CatalogIndex, analyzer *InteractionAnalyzer, exporter domain.GraphExporter) *GraphService {
	return &GraphService{catalog: catalog, analyzer: analyzer, exporter: exporter}
}

// BuildGraph analyzes the item set and returns one node per known item and one
// edge per detected interaction. Layout is a hint passed through to the caller.
func (s *GraphService) BuildGraph(ctx context.Context, ids []string, layout domain.Layout) (*domain.InteractionGraph, error) {
	if layout == "" {
		layout = domain.LayoutForce
	}
	if !layout.Valid() {
		return nil, &domain.FieldError{Kind: domain.ErrInvalidRequest, Field: "layout", Reason: fmt.Sprintf("unknown layout %q", layout)}
	}

	matrix, err := s.analyzer.AnalyzeSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	graph := BuildInteractionGraph(s.catalog, matrix.Items, matrix.Interactions, layout)
	graph.UnknownItems = matrix.UnknownItems

	if s.exporter != nil {
		if err := s.exporter.ExportGraph(ctx, graph); err != nil {
			// export is best effort; the caller still gets the graph
			logging.Ctx(ctx).Warn().Err(err).Str("graph_id", graph.ID).Msg("Graph export failed")
		}
	}

	return graph, nil
}

// BuildInteractionGraph is the pure projection of items and pairs into a graph
func BuildInteractionGraph(catalog *CatalogIndex, ids []string, pairs []domain.InteractionPair, layout domain.Layout) *domain.InteractionGraph {
	incident := make(map[string][]domain.InteractionPair, len(ids))
	for _, p := range pairs {
		incident[p.ItemA] = append(incident[p.ItemA], p)
		incident[p.ItemB] = append(incident[p.ItemB], p)
	}

	graph := &domain.InteractionGraph{
		ID:       uuid.NewString(),
		Nodes:    make([]domain.GraphNode, 0, len(ids)),
		Edges:    make([]domain.GraphEdge, 0, len(pairs)),
		Clusters: []domain.GraphCluster{},
		Layout:   layout,
	}

	for _, id := range ids {
		item, err := catalog.GetByID(id)
		if err != nil {
			continue
		}
		graph.Nodes = append(graph.Nodes, buildNode(item, incident[id]))
	}

	for _, p := range pairs {
		graph.Edges = append(graph.Edges, buildEdge(p))
	}

	graph.Clusters = buildClusters(ids, pairs)
	return graph
}

func buildNode(item *domain.CatalogItem, edges []domain.InteractionPair) domain.GraphNode {
	node := domain.GraphNode{
		ID:                item.ID,
		Name:              item.Name,
		LocalizedName:     item.LocalizedName,
		Category:          item.Category,
		Size:              math.Max(nodeBaseSize, math.Min(nodeMaxSize, nodeBaseSize+nodeSizePerEdge*float64(len(edges)))),
		Color:             defaultNodeColor,
		TotalInteractions: len(edges),
	}
	if c, ok := categoryColors[item.Category]; ok {
		node.Color = c
	}

	var risk float64
	for _, e := range edges {
		risk += edgeStyles[e.Severity].riskWeight
		if e.Severity.HighRisk() {
			node.HighRiskInteractions++
		}
		if e.Severity == domain.SeverityBeneficial {
			node.BeneficialInteractions++
		}
	}
	if len(edges) > 0 {
		node.RiskLevel = clamp(risk/float64(len(edges)), 0, 1)
	}
	return node
}

func buildEdge(p domain.InteractionPair) domain.GraphEdge {
	style, ok := edgeStyles[p.Severity]
	if !ok {
		style = edgeStyle{weight: 0.1, color: defaultNodeColor, thickness: 1}
	}
	return domain.GraphEdge{
		Source:    p.ItemA,
		Target:    p.ItemB,
		Type:      p.Type,
		Severity:  p.Severity,
		Weight:    style.weight,
		Color:     style.color,
		Thickness: style.thickness,
		Animated:  p.Severity.HighRisk(),
		Label:     string(p.Type),
	}
}

// buildClusters groups nodes into connected components of at least two members.
// Component risk follows its most severe edge.
func buildClusters(ids []string, pairs []domain.InteractionPair) []domain.GraphCluster {
	parent := make(map[string]string, len(ids))
	for _, id := range ids {
		parent[id] = id
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	worst := make(map[string]domain.Severity)
	for _, p := range pairs {
		if _, ok := parent[p.ItemA]; !ok {
			continue
		}
		if _, ok := parent[p.ItemB]; !ok {
			continue
		}
		ra, rb := find(p.ItemA), find(p.ItemB)
		if ra != rb {
			parent[rb] = ra
		}
	}
	for _, p := range pairs {
		if _, ok := parent[p.ItemA]; !ok {
			continue
		}
		root := find(p.ItemA)
		if cur, ok := worst[root]; !ok || p.Severity.Rank() > cur.Rank() {
			worst[root] = p.Severity
		}
	}

	members := make(map[string][]string)
	var roots []string
	for _, id := range ids {
		root := find(id)
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], id)
	}

	clusters := []domain.GraphCluster{}
	for _, root := range roots {
		nodes := members[root]
		if len(nodes) < 2 {
			continue
		}
		sorted := append([]string(nil), nodes...)
		sort.Strings(sorted)

		risk := domain.RiskLow
		switch sev := worst[root]; {
		case sev.HighRisk():
			risk = domain.RiskHigh
		case sev == domain.SeverityModerate:
			risk = domain.RiskModerate
		}

		clusters = append(clusters, domain.GraphCluster{
			ID:        fmt.Sprintf("cluster-%d", len(clusters)+1),
			Name:      fmt.Sprintf("%s group", sorted[0]),
			Nodes:     sorted,
			RiskLevel: risk,
		})
	}
	return clusters
}
