// Package graphstore exports interaction graphs to Neo4j for downstream rendering.
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/logging"
)

const (
	mergeNodesQuery = `
UNWIND $nodes AS n
MERGE (s:Supplement {id: n.id})
SET s.name = n.name,
    s.localizedName = n.localizedName,
    s.category = n.category,
    s.riskLevel = n.riskLevel,
    s.color = n.color,
    s.lastGraph = $graphId`

	mergeEdgesQuery = `
UNWIND $edges AS e
MATCH (a:Supplement {id: e.source}), (b:Supplement {id: e.target})
MERGE (a)-[r:INTERACTS_WITH]->(b)
SET r.type = e.type,
    r.severity = e.severity,
    r.weight = e.weight,
    r.label = e.label,
    r.graphId = $graphId`
)

// Config holds the Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Exporter writes graphs to Neo4j. Nodes are merged by item id, so repeated
// exports of overlapping graphs update rather than duplicate.
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewExporter connects to Neo4j and verifies connectivity
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	logging.Info().Str("uri", cfg.URI).Msg("Connected to Neo4j")
	return &Exporter{driver: driver, database: cfg.Database}, nil
}

// Close closes the driver
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// ExportGraph merges every node and edge of graph in one write transaction
func (e *Exporter) ExportGraph(ctx context.Context, graph *domain.InteractionGraph) error {
	if graph == nil || len(graph.Nodes) == 0 {
		return nil
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeNodesQuery, map[string]any{
			"graphId": graph.ID,
			"nodes":   nodeParams(graph.Nodes),
		}); err != nil {
			return nil, err
		}
		if len(graph.Edges) == 0 {
			return nil, nil
		}
		_, err := tx.Run(ctx, mergeEdgesQuery, map[string]any{
			"graphId": graph.ID,
			"edges":   edgeParams(graph.Edges),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to export graph %s: %w", graph.ID, err)
	}
	return nil
}

// nodeParams flattens nodes into driver-friendly maps
func nodeParams(nodes []domain.GraphNode) []map[string]any {
	out := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		out[i] = map[string]any{
			"id":            n.ID,
			"name":          n.Name,
			"localizedName": n.LocalizedName,
			"category":      string(n.Category),
			"riskLevel":     n.RiskLevel,
			"color":         n.Color,
		}
	}
	return out
}

func edgeParams(edges []domain.GraphEdge) []map[string]any {
	out := make([]map[string]any, len(edges))
	for i, e := range edges {
		out[i] = map[string]any{
			"source":   e.Source,
			"target":   e.Target,
			"type":     string(e.Type),
			"severity": string(e.Severity),
			"weight":   e.Weight,
			"label":    e.Label,
		}
	}
	return out
}
