package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/monitor"
)

const testKey = "RELIANCE/2024_BRSR_ab12cd34.pdf"

type fakeDelivery struct {
	body   []byte
	acked  bool
	nacked bool
}

func (f *fakeDelivery) delivery() interfaces.Delivery {
	return interfaces.Delivery{
		Body: f.body,
		Ack:  func() error { f.acked = true; return nil },
		Nack: func() error { f.nacked = true; return nil },
	}
}

type statusChange struct {
	key    string
	status string
}

type fakeIngestion struct {
	records  map[string]*models.IngestionRecord
	statuses []statusChange
}

func (f *fakeIngestion) Upsert(ctx context.Context, rec *models.IngestionRecord) error { return nil }

func (f *fakeIngestion) Get(ctx context.Context, objectKey string) (*models.IngestionRecord, error) {
	return f.records[objectKey], nil
}

func (f *fakeIngestion) SetStatus(ctx context.Context, objectKey, status, errMsg string) error {
	f.statuses = append(f.statuses, statusChange{objectKey, status})
	return nil
}

func (f *fakeIngestion) ListByStatus(ctx context.Context, status string, limit int) ([]*models.IngestionRecord, error) {
	return nil, nil
}

type fakeCatalog struct {
	companies map[string]*models.Company
}

func (f *fakeCatalog) Reconcile(ctx context.Context, rows []models.CatalogRow) (models.SyncResult, error) {
	return models.SyncResult{}, nil
}

func (f *fakeCatalog) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return f.companies[symbol], nil
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	return nil, nil
}

func (f *fakeCatalog) List(ctx context.Context, query string, offset, limit int) ([]*models.Company, int, error) {
	return nil, 0, nil
}

type fakeExtractor struct {
	done  bool
	rows  []models.Extraction
	err   error
	calls int
}

func (f *fakeExtractor) AlreadyProcessed(ctx context.Context, companyID int64, year int) (bool, error) {
	return f.done, nil
}

func (f *fakeExtractor) ExtractCompanyYear(ctx context.Context, company *models.Company, year int) ([]models.Extraction, error) {
	f.calls++
	return f.rows, f.err
}

type fakeScorer struct {
	calls int
	err   error
}

func (f *fakeScorer) Compute(ctx context.Context, companyID int64, symbol string, year int) (*models.ESGScore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	overall := 61.5
	return &models.ESGScore{CompanyID: companyID, Symbol: symbol, Year: year, Overall: &overall}, nil
}

var (
	_ interfaces.IngestionStore = (*fakeIngestion)(nil)
	_ interfaces.CatalogStore   = (*fakeCatalog)(nil)
	_ Extractor                 = (*fakeExtractor)(nil)
	_ ScoreComputer             = (*fakeScorer)(nil)
)

type harness struct {
	ingestion *fakeIngestion
	catalog   *fakeCatalog
	extractor *fakeExtractor
	scorer    *fakeScorer
	collector *monitor.Collector
	worker    *Worker
}

func newHarness() *harness {
	h := &harness{
		ingestion: &fakeIngestion{records: map[string]*models.IngestionRecord{}},
		catalog: &fakeCatalog{companies: map[string]*models.Company{
			"RELIANCE": {ID: 7, Symbol: "RELIANCE", Name: "Reliance Industries Limited"},
		}},
		extractor: &fakeExtractor{rows: []models.Extraction{
			{CompanyID: 7, Year: 2024, IndicatorCode: "E1", Confidence: 0.9},
			{CompanyID: 7, Year: 2024, IndicatorCode: "S1", Confidence: 0.8},
		}},
		scorer:    &fakeScorer{},
		collector: monitor.NewCollector("extraction"),
	}
	h.worker = NewWorker(h.ingestion, h.catalog, h.extractor, h.scorer, h.collector, arbor.NewLogger())
	return h
}

func taskBody(key string) []byte {
	return []byte(`{"object_key":"` + key + `"}`)
}

func TestHandleProcessesTask(t *testing.T) {
	h := newHarness()
	d := &fakeDelivery{body: taskBody(testKey)}

	h.worker.Handle(context.Background(), d.delivery())

	assert.True(t, d.acked)
	assert.False(t, d.nacked)
	assert.Equal(t, 1, h.extractor.calls)
	assert.Equal(t, 1, h.scorer.calls)

	require.Len(t, h.ingestion.statuses, 1)
	assert.Equal(t, models.IngestionExtracted, h.ingestion.statuses[0].status)

	snap := h.collector.Snapshot()
	assert.Equal(t, uint64(1), snap.Processed)
	assert.Equal(t, 2, snap.Recent[0].Extractions)
}

func TestHandleMalformedBody(t *testing.T) {
	h := newHarness()
	d := &fakeDelivery{body: []byte("{not json")}

	h.worker.Handle(context.Background(), d.delivery())

	assert.True(t, d.acked, "a body that never parses must not redeliver")
	assert.Empty(t, h.ingestion.statuses)
	assert.Zero(t, h.extractor.calls)
	assert.Equal(t, uint64(1), h.collector.Snapshot().Failed)
}

func TestHandleMalformedKey(t *testing.T) {
	h := newHarness()
	d := &fakeDelivery{body: taskBody("not-a-key")}

	h.worker.Handle(context.Background(), d.delivery())

	assert.True(t, d.acked)
	require.Len(t, h.ingestion.statuses, 1)
	assert.Equal(t, models.IngestionFailed, h.ingestion.statuses[0].status)
}

func TestHandleUnknownCompany(t *testing.T) {
	h := newHarness()
	d := &fakeDelivery{body: taskBody("NOSUCH/2024_BRSR_ab12cd34.pdf")}

	h.worker.Handle(context.Background(), d.delivery())

	assert.True(t, d.acked)
	require.Len(t, h.ingestion.statuses, 1)
	assert.Equal(t, models.IngestionFailed, h.ingestion.statuses[0].status)
	assert.Zero(t, h.extractor.calls)
}

func TestHandleSkipsProcessedDocument(t *testing.T) {
	h := newHarness()
	h.ingestion.records[testKey] = &models.IngestionRecord{ObjectKey: testKey, Status: models.IngestionExtracted}
	h.extractor.done = true
	d := &fakeDelivery{body: taskBody(testKey)}

	h.worker.Handle(context.Background(), d.delivery())

	assert.True(t, d.acked)
	assert.Zero(t, h.extractor.calls, "extraction must not re-run the LLM chain")
	assert.Equal(t, 1, h.scorer.calls, "the skip path still refreshes the score")
	assert.Equal(t, uint64(1), h.collector.Snapshot().Skipped)
}

func TestHandleTransientExtractorFault(t *testing.T) {
	h := newHarness()
	h.extractor.err = common.Transient(errors.New("llm gateway timeout"))
	d := &fakeDelivery{body: taskBody(testKey)}

	h.worker.Handle(context.Background(), d.delivery())

	assert.False(t, d.acked)
	assert.True(t, d.nacked)
	assert.Empty(t, h.ingestion.statuses, "transient faults must not mark the document FAILED")
}

func TestHandleScoringFailureDeadLetters(t *testing.T) {
	h := newHarness()
	h.scorer.err = errors.New("scores table unavailable")
	d := &fakeDelivery{body: taskBody(testKey)}

	h.worker.Handle(context.Background(), d.delivery())

	// The status already advanced to EXTRACTED; redelivery lands on the
	// skip path and recomputes the score without re-running the LLM chain.
	assert.True(t, d.nacked)
	require.Len(t, h.ingestion.statuses, 1)
	assert.Equal(t, models.IngestionExtracted, h.ingestion.statuses[0].status)
}
