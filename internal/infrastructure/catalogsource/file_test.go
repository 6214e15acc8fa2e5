package catalogsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suplementor/backend/internal/domain"
)

const yamlCatalog = `
- id: magnesium
  name: Magnesium Glycinate
  category: mineral
  evidenceLevel: moderate
  clinicalApplications:
    - condition: Sleep quality
      effectivenessRating: 6
      evidenceLevel: moderate
  interactions:
    - substance: Zinc
      type: competitive
      severity: moderate
      separationRequired: true
      minimumSeparation: 2 hours
  dosage:
    therapeuticRange: {min: 200, max: 400, unit: mg}
  economics: {averageMonthlyCost: 12, currency: USD, costEffectiveness: excellent}
- id: broken-rating
  name: Broken
  category: herb
  evidenceLevel: weak
  clinicalApplications:
    - condition: Anything
      effectivenessRating: 14
- id: magnesium
  name: Magnesium Again
  category: mineral
  evidenceLevel: weak
- id: not-a-number
  name: Bad Types
  category: herb
  evidenceLevel: weak
  economics: {averageMonthlyCost: cheap}
- name: No Id
  category: vitamin
  evidenceLevel: strong
`

func TestDecodeYAML(t *testing.T) {
	result, err := DecodeYAML([]byte(yamlCatalog))
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	mg := result.Items[0]
	assert.Equal(t, "magnesium", mg.ID)
	assert.Equal(t, domain.CategoryMineral, mg.Category)
	assert.Equal(t, 400.0, mg.Dosage.TherapeuticRange.Max)
	require.Len(t, mg.Interactions, 1)
	assert.Equal(t, "2 hours", mg.Interactions[0].MinimumSeparation)

	require.Len(t, result.Rejected, 4)

	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, "broken-rating", result.Rejected[0].ID)
	assert.Equal(t, "clinicalApplications[0].effectivenessRating", result.Rejected[0].Field)

	assert.Equal(t, 2, result.Rejected[1].Index)
	assert.ErrorIs(t, result.Rejected[1], domain.ErrDuplicateID)

	assert.Equal(t, 3, result.Rejected[2].Index)
	assert.Equal(t, "record", result.Rejected[2].Field)

	assert.Equal(t, 4, result.Rejected[3].Index)
	assert.Equal(t, "id", result.Rejected[3].Field)

	for _, rej := range result.Rejected {
		assert.True(t, errors.Is(rej, domain.ErrCatalogLoad))
	}
}

func TestDecodeYAML_Shape(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		result, err := DecodeYAML(nil)
		require.NoError(t, err)
		assert.Empty(t, result.Items)
	})

	t.Run("mapping instead of sequence", func(t *testing.T) {
		_, err := DecodeYAML([]byte("id: zinc\nname: Zinc\n"))
		assert.ErrorIs(t, err, domain.ErrCatalogLoad)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := DecodeYAML([]byte("- id: [unclosed"))
		assert.ErrorIs(t, err, domain.ErrCatalogLoad)
	})
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`[
		{"id": "zinc", "name": "Zinc", "category": "mineral", "evidenceLevel": "moderate",
		 "safety": {"pregnancyCategory": "A", "pediatricApproved": true}},
		{"id": "odd", "name": "Odd", "category": "mystery", "evidenceLevel": "weak"},
		{"id": 7}
	]`)

	result, err := DecodeJSON(data)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Safety.PediatricApproved)

	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "category", result.Rejected[0].Field)
	assert.Equal(t, "record", result.Rejected[1].Field)

	_, err = DecodeJSON([]byte(`{"id": "zinc"}`))
	assert.ErrorIs(t, err, domain.ErrCatalogLoad)
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	yamlPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlCatalog), 0o600))
	result, err := NewFileSource(yamlPath).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	jsonPath := filepath.Join(dir, "catalog.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"id":"c","name":"C","category":"vitamin","evidenceLevel":"strong"}]`), 0o600))
	result, err = NewFileSource(jsonPath).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Empty(t, result.Rejected)

	_, err = NewFileSource(filepath.Join(dir, "missing.yaml")).Load(ctx)
	assert.ErrorIs(t, err, domain.ErrCatalogLoad)
}

func TestFileSource_LoadsBundledCatalog(t *testing.T) {
	result, err := NewFileSource(filepath.Join("..", "..", "..", "data", "catalog.yaml")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Rejected)
	assert.GreaterOrEqual(t, len(result.Items), 8)
}
