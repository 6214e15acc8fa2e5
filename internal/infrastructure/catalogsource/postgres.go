package catalogsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"

	"github.com/suplementor/backend/internal/domain"
)

const catalogQuery = `SELECT id, document FROM supplement_catalog ORDER BY position`

// PostgresSource loads catalog records stored as JSON documents in Postgres
type PostgresSource struct {
	db *sql.DB
}

// OpenPostgres opens and pings a Postgres connection for dsn
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSource creates a source reading from db
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Load reads every row of supplement_catalog in position order. A row whose
// document omits the id takes the row id.
func (s *PostgresSource) Load(ctx context.Context) (*domain.LoadResult, error) {
	rows, err := s.db.QueryContext(ctx, catalogQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query catalog: %v", domain.ErrCatalogLoad, err)
	}
	defer rows.Close()

	c := newCollector(0)
	for i := 0; rows.Next(); i++ {
		var id string
		var document []byte
		if err := rows.Scan(&id, &document); err != nil {
			return nil, fmt.Errorf("%w: scan row %d: %v", domain.ErrCatalogLoad, i, err)
		}
		c.add(i, id, func(item *domain.CatalogItem) error {
			return json.Unmarshal(document, item)
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate catalog rows: %v", domain.ErrCatalogLoad, err)
	}
	return c.result, nil
}
