package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Research ResearchConfig `mapstructure:"research"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig says where the supplement catalog is loaded from
type CatalogConfig struct {
	Source      string `mapstructure:"source"` // "file" or "postgres"
	Path        string `mapstructure:"path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ResearchConfig holds research evidence API configuration
type ResearchConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ScoringConfig holds recommendation tuning
type ScoringConfig struct {
	InclusionThreshold float64 `mapstructure:"inclusion_threshold"`
	DefaultMaxResults  int     `mapstructure:"default_max_results"`
	MaxResultsLimit    int     `mapstructure:"max_results_limit"`
}

// GraphConfig holds the optional Neo4j graph export
type GraphConfig struct {
	ExportEnabled bool   `mapstructure:"export_enabled"`
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUsername string `mapstructure:"neo4j_username"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
	Neo4jDatabase string `mapstructure:"neo4j_database"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/suplementor/")

	// SUPLEMENTOR_RESEARCH_API_KEY -> research.api_key
	v.SetEnvPrefix("SUPLEMENTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads ./.env when present. Variables already set in the
// environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.path", "data/catalog.yaml")
	v.SetDefault("catalog.postgres_dsn", "")

	v.SetDefault("research.enabled", false)
	v.SetDefault("research.base_url", "https://research.example.org")
	v.SetDefault("research.api_key", "")
	v.SetDefault("research.timeout", "2s")
	v.SetDefault("research.requests_per_hour", 1000)
	v.SetDefault("research.breaker_failures", 5)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h") // 7 days

	v.SetDefault("scoring.inclusion_threshold", 30)
	v.SetDefault("scoring.default_max_results", 5)
	v.SetDefault("scoring.max_results_limit", 25)

	v.SetDefault("graph.export_enabled", false)
	v.SetDefault("graph.neo4j_uri", "")
	v.SetDefault("graph.neo4j_username", "neo4j")
	v.SetDefault("graph.neo4j_password", "")
	v.SetDefault("graph.neo4j_database", "neo4j")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Source {
	case "file":
		if config.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required when catalog source is 'file'")
		}
	case "postgres":
		if config.Catalog.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required when catalog source is 'postgres' (set SUPLEMENTOR_CATALOG_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("catalog source must be 'file' or 'postgres', got: %s", config.Catalog.Source)
	}

	if config.Research.Enabled && config.Research.APIKey == "" {
		return fmt.Errorf("research API key is required when research is enabled (set SUPLEMENTOR_RESEARCH_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if t := config.Scoring.InclusionThreshold; t < 0 || t > 100 {
		return fmt.Errorf("scoring inclusion threshold must be within [0,100], got: %v", t)
	}

	if config.Graph.ExportEnabled && config.Graph.Neo4jURI == "" {
		return fmt.Errorf("neo4j URI is required when graph export is enabled")
	}

	if f := config.Logging.Format; f != "json" && f != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got: %s", f)
	}

	return nil
}
