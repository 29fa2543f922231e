package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

type fakeTelemetryStore struct {
	appended []*models.TelemetrySnapshot
	err      error
}

func (f *fakeTelemetryStore) Append(ctx context.Context, snapshot *models.TelemetrySnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, snapshot)
	return nil
}

func (f *fakeTelemetryStore) Latest(ctx context.Context, companyName string) (*models.TelemetrySnapshot, error) {
	return nil, nil
}

func (f *fakeTelemetryStore) LatestSince(ctx context.Context, companyName string, since time.Time) (*models.TelemetrySnapshot, error) {
	return nil, nil
}

var _ interfaces.TelemetryStore = (*fakeTelemetryStore)(nil)

func TestHandleSnapshot(t *testing.T) {
	store := &fakeTelemetryStore{}
	sink := NewSink(store, arbor.NewLogger())

	snap := models.TelemetrySnapshot{
		CompanyName: "Acme Steel Works",
		SourceURL:   "https://ocems.example.com/acme",
		Readings: map[string]map[string]models.Reading{
			"Stack 1": {"PM": {Status: models.StatusOperational, Value: "12.4"}},
		},
		ScrapedAt: time.Date(2026, 8, 25, 10, 45, 0, 0, time.UTC),
	}
	body, err := json.Marshal(snap)
	require.NoError(t, err)

	require.NoError(t, sink.HandleSnapshot(context.Background(), body))

	require.Len(t, store.appended, 1)
	got := store.appended[0]
	assert.Equal(t, "Acme Steel Works", got.CompanyName)
	assert.Equal(t, snap.ScrapedAt, got.ScrapedAt)
	assert.Equal(t, "12.4", got.Readings["Stack 1"]["PM"].Value)
}

func TestHandleSnapshotDefaultsScrapedAt(t *testing.T) {
	store := &fakeTelemetryStore{}
	sink := NewSink(store, arbor.NewLogger())

	require.NoError(t, sink.HandleSnapshot(context.Background(),
		[]byte(`{"company_name":"Acme Steel Works","source_url":"https://ocems.example.com/acme"}`)))

	require.Len(t, store.appended, 1)
	assert.False(t, store.appended[0].ScrapedAt.IsZero())
}

func TestHandleSnapshotMalformed(t *testing.T) {
	sink := NewSink(&fakeTelemetryStore{}, arbor.NewLogger())

	err := sink.HandleSnapshot(context.Background(), []byte(`{"company_name":`))

	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestHandleSnapshotMissingCompany(t *testing.T) {
	sink := NewSink(&fakeTelemetryStore{}, arbor.NewLogger())

	err := sink.HandleSnapshot(context.Background(), []byte(`{"source_url":"https://ocems.example.com"}`))

	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestHandleSnapshotStoreFailure(t *testing.T) {
	sink := NewSink(&fakeTelemetryStore{err: errors.New("no reachable servers")}, arbor.NewLogger())

	err := sink.HandleSnapshot(context.Background(),
		[]byte(`{"company_name":"Acme Steel Works"}`))

	require.Error(t, err)
	assert.NotEqual(t, common.FaultPermanentInput, common.KindOf(err))
}
