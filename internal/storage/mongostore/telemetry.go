package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

const snapshotCollection = "pollution_snapshots"

// TelemetryStore is the append-only snapshot sink backed by MongoDB.
type TelemetryStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger arbor.ILogger
}

var _ interfaces.TelemetryStore = (*TelemetryStore)(nil)

// Connect dials Mongo with bounded retries and prepares the snapshot
// collection index.
func Connect(ctx context.Context, cfg common.MongoConfig, logger arbor.ILogger) (*TelemetryStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to build mongo client: %w", err))
	}

	err = common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			return common.Transient(fmt.Errorf("mongo ping failed: %w", err))
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, common.PermanentSystem(fmt.Errorf("mongo unreachable at %s: %w", cfg.URI, err))
	}

	coll := client.Database(cfg.Database).Collection(snapshotCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "company_name", Value: 1}, {Key: "scraped_at", Value: -1}},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure telemetry index")
	}

	logger.Info().Str("database", cfg.Database).Msg("Connected to Mongo telemetry store")

	return &TelemetryStore{client: client, coll: coll, logger: logger}, nil
}

// Append stores one snapshot. History is never updated in place.
func (s *TelemetryStore) Append(ctx context.Context, snapshot *models.TelemetrySnapshot) error {
	if _, err := s.coll.InsertOne(ctx, snapshot); err != nil {
		return common.Transient(fmt.Errorf("failed to append telemetry snapshot: %w", err))
	}
	return nil
}

// Latest returns the newest snapshot for a company, or nil when none exist.
func (s *TelemetryStore) Latest(ctx context.Context, companyName string) (*models.TelemetrySnapshot, error) {
	return s.findOne(ctx, bson.M{"company_name": companyName})
}

// LatestSince returns the newest snapshot scraped after the given time, or
// nil when nothing newer exists. The websocket stream polls with this.
func (s *TelemetryStore) LatestSince(ctx context.Context, companyName string, since time.Time) (*models.TelemetrySnapshot, error) {
	return s.findOne(ctx, bson.M{
		"company_name": companyName,
		"scraped_at":   bson.M{"$gt": since},
	})
}

func (s *TelemetryStore) findOne(ctx context.Context, filter bson.M) (*models.TelemetrySnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "scraped_at", Value: -1}})

	var snapshot models.TelemetrySnapshot
	err := s.coll.FindOne(ctx, filter, opts).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load telemetry snapshot: %w", err))
	}
	return &snapshot, nil
}

// Ping verifies the connection for health checks.
func (s *TelemetryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *TelemetryStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
