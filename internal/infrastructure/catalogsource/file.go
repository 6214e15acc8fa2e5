package catalogsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/suplementor/backend/internal/domain"
)

// FileSource loads the catalog from a YAML or JSON file holding an array of records
type FileSource struct {
	path string
}

// NewFileSource creates a source for path. The format follows the extension:
// .json is JSON, anything else is YAML.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the file
func (s *FileSource) Load(ctx context.Context) (*domain.LoadResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrCatalogLoad, s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		return DecodeJSON(data)
	}
	return DecodeYAML(data)
}

// DecodeJSON decodes a JSON array of catalog records
func DecodeJSON(data []byte) (*domain.LoadResult, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: catalog must be a JSON array: %v", domain.ErrCatalogLoad, err)
	}

	c := newCollector(len(records))
	for i, raw := range records {
		c.add(i, "", func(item *domain.CatalogItem) error {
			return json.Unmarshal(raw, item)
		})
	}
	return c.result, nil
}

// DecodeYAML decodes a YAML sequence of catalog records
func DecodeYAML(data []byte) (*domain.LoadResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogLoad, err)
	}
	if doc.Kind == 0 {
		return &domain.LoadResult{Items: []domain.CatalogItem{}}, nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: catalog must be a YAML sequence, got line %d", domain.ErrCatalogLoad, root.Line)
	}

	c := newCollector(len(root.Content))
	for i, node := range root.Content {
		c.add(i, "", func(item *domain.CatalogItem) error {
			return node.Decode(item)
		})
	}
	return c.result, nil
}
