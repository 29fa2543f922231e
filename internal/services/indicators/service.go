package indicators

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// Service owns the persisted indicator catalog.
type Service struct {
	store  interfaces.IndicatorStore
	logger arbor.ILogger
}

// NewService creates the catalog service.
func NewService(store interfaces.IndicatorStore, logger arbor.ILogger) *Service {
	return &Service{store: store, logger: logger}
}

// EnsureSeeded validates the built-in catalog and inserts rows missing from
// the store. Existing rows win, so weights and bounds retuned in the
// database survive redeploys. Runs at extraction-worker startup.
func (s *Service) EnsureSeeded(ctx context.Context) error {
	seed := Catalog()
	for _, ind := range seed {
		if err := ind.Validate(); err != nil {
			return common.PermanentSystem(fmt.Errorf("built-in indicator catalog is invalid: %w", err))
		}
	}

	if err := s.store.EnsureSeeded(ctx, seed); err != nil {
		return err
	}

	s.logger.Info().Int("indicators", len(seed)).Msg("Indicator catalog seeded")
	return nil
}

// DefinitionsByAttribute returns the persisted catalog grouped by BRSR
// attribute. An empty catalog is a deployment fault, not a data condition.
func (s *Service) DefinitionsByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	byAttribute, err := s.store.ListByAttribute(ctx)
	if err != nil {
		return nil, err
	}
	if len(byAttribute) == 0 {
		return nil, common.PermanentSystem(fmt.Errorf("indicator catalog is empty"))
	}
	return byAttribute, nil
}
