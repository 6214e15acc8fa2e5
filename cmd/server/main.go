package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suplementor/backend/config"
	httpDelivery "github.com/suplementor/backend/internal/delivery/http"
	"github.com/suplementor/backend/internal/domain"
	"github.com/suplementor/backend/internal/infrastructure/cache"
	"github.com/suplementor/backend/internal/infrastructure/catalogsource"
	"github.com/suplementor/backend/internal/infrastructure/graphstore"
	"github.com/suplementor/backend/internal/infrastructure/research"
	"github.com/suplementor/backend/internal/logging"
	"github.com/suplementor/backend/internal/metrics"
	"github.com/suplementor/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("catalog_source", cfg.Catalog.Source).
		Str("cache", cfg.Cache.Type).
		Msg("Starting Suplementor backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := loadCatalog(ctx, cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	}

	evidence, closeCache, err := buildEvidence(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize research evidence")
	}
	defer closeCache()

	var exporter domain.GraphExporter
	if cfg.Graph.ExportEnabled {
		neo, err := graphstore.NewExporter(ctx, graphstore.Config{
			URI:      cfg.Graph.Neo4jURI,
			Username: cfg.Graph.Neo4jUsername,
			Password: cfg.Graph.Neo4jPassword,
			Database: cfg.Graph.Neo4jDatabase,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect graph store")
		}
		defer neo.Close(context.Background())
		exporter = neo
	}

	analyzer := usecase.NewInteractionAnalyzer(idx)
	scorer := usecase.NewScorer(idx, usecase.ScoringConfig{
		InclusionThreshold: cfg.Scoring.InclusionThreshold,
	})
	recommender := usecase.NewRecommendationService(idx, scorer, analyzer, evidence, usecase.RecommendationConfig{
		DefaultMaxResults: cfg.Scoring.DefaultMaxResults,
		MaxResultsLimit:   cfg.Scoring.MaxResultsLimit,
		ResearchTimeout:   cfg.Research.Timeout,
	})
	graphs := usecase.NewGraphService(idx, analyzer, exporter)

	handler := httpDelivery.NewHandler(idx, recommender, analyzer, graphs)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}

// loadCatalog reads the configured source, logs every rejected record and
// indexes the accepted ones
func loadCatalog(ctx context.Context, cfg config.CatalogConfig) (*usecase.CatalogIndex, error) {
	var (
		source domain.CatalogSource
		db     *sql.DB
	)
	switch cfg.Source {
	case "postgres":
		var err error
		db, err = catalogsource.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		source = catalogsource.NewPostgresSource(db)
	default:
		source = catalogsource.NewFileSource(cfg.Path)
	}

	result, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}

	for _, rejected := range result.Rejected {
		logging.Warn().
			Int("index", rejected.Index).
			Str("id", rejected.ID).
			Str("field", rejected.Field).
			Str("reason", rejected.Reason).
			Msg("Catalog record rejected")
		metrics.CatalogRecordsRejected.Inc()
	}

	idx, err := usecase.BuildCatalogIndex(result.Items)
	if err != nil {
		return nil, err
	}
	metrics.CatalogItemsLoaded.Set(float64(idx.Len()))
	logging.Info().
		Int("items", idx.Len()).
		Int("rejected", len(result.Rejected)).
		Msg("Catalog loaded")
	return idx, nil
}

// buildEvidence returns nil when research is disabled so responses stay local-only
func buildEvidence(ctx context.Context, cfg *config.Config) (domain.EvidenceClient, func(), error) {
	noop := func() {}
	if !cfg.Research.Enabled {
		logging.Info().Msg("Research evidence disabled")
		return nil, noop, nil
	}

	var (
		repo    domain.CacheRepository
		closeFn = noop
	)
	switch cfg.Cache.Type {
	case "redis":
		client, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		repo = cache.NewRedisCache(client, "")
		closeFn = func() { _ = client.Close() }
	default:
		mem := cache.NewMemoryCache(0)
		repo = mem
		closeFn = func() { _ = mem.Close() }
	}

	client := research.NewClient(research.Config{
		APIKey:          cfg.Research.APIKey,
		BaseURL:         cfg.Research.BaseURL,
		RequestsPerHour: cfg.Research.RequestsPerHour,
		BreakerFailures: cfg.Research.BreakerFailures,
	})
	logging.Info().Str("base_url", cfg.Research.BaseURL).Dur("cache_ttl", cfg.Cache.TTL).Msg("Research evidence enabled")

	return usecase.NewEvidenceService(repo, client, usecase.EvidenceServiceConfig{CacheTTL: cfg.Cache.TTL}), closeFn, nil
}
