package indicators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/models"
)

func TestCatalogCoverage(t *testing.T) {
	catalog := Catalog()
	assert.GreaterOrEqual(t, len(catalog), 55)

	byAttribute := make(map[int]int)
	for _, ind := range catalog {
		byAttribute[ind.Attribute]++
	}
	for attr := 1; attr <= 9; attr++ {
		assert.Greater(t, byAttribute[attr], 0, "attribute %d has no indicators", attr)
	}
}

func TestCatalogValid(t *testing.T) {
	for _, ind := range Catalog() {
		assert.NoError(t, ind.Validate(), "indicator %s", ind.Code)
	}
}

func TestCatalogCodesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, ind := range Catalog() {
		assert.False(t, seen[ind.Code], "duplicate code %s", ind.Code)
		seen[ind.Code] = true
	}
}

func TestCatalogPillarMapping(t *testing.T) {
	for _, ind := range Catalog() {
		var want models.Pillar
		switch {
		case ind.Attribute <= 4:
			want = models.PillarEnvironment
		case ind.Attribute <= 7:
			want = models.PillarSocial
		default:
			want = models.PillarGovernance
		}
		assert.Equal(t, want, ind.Pillar(), "indicator %s", ind.Code)
	}
}

func TestCatalogQueryText(t *testing.T) {
	catalog := Catalog()
	for _, ind := range catalog {
		if ind.Code == "E1_GHG_SCOPE1" {
			assert.Equal(t, "Total Scope 1 GHG emissions tCO2e scope 1 direct greenhouse gas carbon emissions", ind.QueryText())
			return
		}
	}
	t.Fatal("E1_GHG_SCOPE1 missing from catalog")
}

type fakeIndicatorStore struct {
	seeded  []models.Indicator
	grouped map[int][]models.Indicator
	err     error
}

func (f *fakeIndicatorStore) EnsureSeeded(ctx context.Context, indicators []models.Indicator) error {
	if f.err != nil {
		return f.err
	}
	f.seeded = indicators
	return nil
}

func (f *fakeIndicatorStore) ListByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	return f.grouped, f.err
}

func TestEnsureSeeded(t *testing.T) {
	store := &fakeIndicatorStore{}
	svc := NewService(store, arbor.NewLogger())

	require.NoError(t, svc.EnsureSeeded(context.Background()))
	assert.Len(t, store.seeded, len(Catalog()))
}

func TestDefinitionsByAttributeEmptyCatalog(t *testing.T) {
	store := &fakeIndicatorStore{grouped: map[int][]models.Indicator{}}
	svc := NewService(store, arbor.NewLogger())

	_, err := svc.DefinitionsByAttribute(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentSystem, common.KindOf(err))
}
