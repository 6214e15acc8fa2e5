// Package catalogsource reads supplement catalog records from files or Postgres.
// Every record is decoded and validated on its own; a bad record is reported
// in the load result and never stops the others from loading.
package catalogsource

import (
	"errors"
	"strings"

	"github.com/suplementor/backend/internal/domain"
)

// decoder fills item from one raw record
type decoder func(item *domain.CatalogItem) error

// collector accumulates accepted items and rejections in record order
type collector struct {
	result *domain.LoadResult
	seen   map[string]bool
}

func newCollector(capacity int) *collector {
	return &collector{
		result: &domain.LoadResult{Items: make([]domain.CatalogItem, 0, capacity)},
		seen:   make(map[string]bool, capacity),
	}
}

// add decodes and validates record index. fallbackID names the record in
// rejections when the body carries no id.
func (c *collector) add(index int, fallbackID string, decode decoder) {
	var item domain.CatalogItem
	if err := decode(&item); err != nil {
		c.reject(&domain.CatalogLoadError{Index: index, ID: fallbackID, Field: "record", Reason: err.Error()})
		return
	}
	if item.ID == "" {
		item.ID = fallbackID
	}
	item.ID = strings.TrimSpace(item.ID)

	if err := item.Validate(); err != nil {
		loadErr := &domain.CatalogLoadError{Index: index, ID: item.ID, Field: "record", Reason: err.Error()}
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			loadErr.Field, loadErr.Reason = fe.Field, fe.Reason
		}
		c.reject(loadErr)
		return
	}

	if c.seen[item.ID] {
		c.reject(&domain.CatalogLoadError{
			Index:  index,
			ID:     item.ID,
			Field:  "id",
			Reason: "already defined by an earlier record",
			Err:    domain.ErrDuplicateID,
		})
		return
	}
	c.seen[item.ID] = true
	c.result.Items = append(c.result.Items, item)
}

func (c *collector) reject(err *domain.CatalogLoadError) {
	c.result.Rejected = append(c.result.Rejected, err)
}
