// Package app wires storage, broker, and service dependencies for each
// esgpipe process. Every process shares the same Postgres core; heavier
// backends (broker, object store, Mongo, browsers, LLM clients) are
// connected on demand by the Build* helpers so an API node never starts a
// browser and a sync job never dials RabbitMQ.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/handlers"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/monitor"
	"github.com/greenarc/esgpipe/internal/queue"
	"github.com/greenarc/esgpipe/internal/server"
	"github.com/greenarc/esgpipe/internal/services/auth"
	"github.com/greenarc/esgpipe/internal/services/browser"
	"github.com/greenarc/esgpipe/internal/services/cache"
	"github.com/greenarc/esgpipe/internal/services/catalog"
	"github.com/greenarc/esgpipe/internal/services/embeddings"
	"github.com/greenarc/esgpipe/internal/services/extraction"
	"github.com/greenarc/esgpipe/internal/services/filings"
	"github.com/greenarc/esgpipe/internal/services/indicators"
	"github.com/greenarc/esgpipe/internal/services/llm"
	"github.com/greenarc/esgpipe/internal/services/pdf"
	"github.com/greenarc/esgpipe/internal/services/scoring"
	"github.com/greenarc/esgpipe/internal/services/telemetry"
	"github.com/greenarc/esgpipe/internal/storage/mongostore"
	"github.com/greenarc/esgpipe/internal/storage/objectstore"
	"github.com/greenarc/esgpipe/internal/storage/postgres"
	embedworker "github.com/greenarc/esgpipe/internal/workers/embedding"
	extractworker "github.com/greenarc/esgpipe/internal/workers/extraction"
	telemetryworker "github.com/greenarc/esgpipe/internal/workers/telemetry"
)

// App holds the shared dependencies of an esgpipe process.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Postgres core, connected by New for every process.
	Pool          *pgxpool.Pool
	Catalog       *postgres.CatalogStore
	Announcements *postgres.AnnouncementStore
	Ingestion     *postgres.IngestionStore
	Chunks        *postgres.EmbeddingStore
	Indicators    *postgres.IndicatorStore
	Extractions   *postgres.ExtractionStore
	Scores        *postgres.ScoreStore
	LiveLinks     *postgres.LiveLinkStore
	Users         *postgres.UserStore

	// Cache is always constructed; with cache.enabled=false it no-ops.
	Cache *cache.Service

	// Backends connected on demand; nil until the owning Connect method runs.
	Broker    *queue.Broker
	Publisher *queue.Publisher
	Consumer  *queue.Consumer
	Objects   *objectstore.Store
	Telemetry *mongostore.TelemetryStore
	Browsers  *browser.Pool
	Embedder  interfaces.LLMService
	Generator interfaces.LLMService
}

// New connects Postgres, ensures the schema, and builds the store layer.
// Anything failing here is fatal for every process.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool, cfg.Embedding.Dimensions, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,

		Pool:          pool,
		Catalog:       postgres.NewCatalogStore(pool, logger),
		Announcements: postgres.NewAnnouncementStore(pool, logger),
		Ingestion:     postgres.NewIngestionStore(pool, logger),
		Chunks:        postgres.NewEmbeddingStore(pool, cfg.Embedding.Dimensions, logger),
		Indicators:    postgres.NewIndicatorStore(pool, logger),
		Extractions:   postgres.NewExtractionStore(pool, logger),
		Scores:        postgres.NewScoreStore(pool, logger),
		LiveLinks:     postgres.NewLiveLinkStore(pool, logger),
		Users:         postgres.NewUserStore(pool, logger),

		Cache: cache.NewService(cfg.Cache, logger),
	}, nil
}

// ConnectBroker dials RabbitMQ and prepares the publisher and consumer.
// Idempotent.
func (a *App) ConnectBroker(ctx context.Context) error {
	if a.Broker != nil {
		return nil
	}

	broker, err := queue.Connect(ctx, a.Config.Broker, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	a.Broker = broker
	a.Publisher = queue.NewPublisher(broker, a.Logger)
	a.Consumer = queue.NewConsumer(broker, a.Logger)
	return nil
}

// ConnectObjects dials the S3-compatible object store and ensures the
// reports bucket exists. Idempotent.
func (a *App) ConnectObjects(ctx context.Context) error {
	if a.Objects != nil {
		return nil
	}

	store, err := objectstore.New(ctx, a.Config.ObjectStore, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to object store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}

	a.Objects = store
	return nil
}

// ConnectTelemetryStore dials Mongo. Fails when mongo.enabled is false so
// processes that cannot run without telemetry history refuse to start.
// Idempotent.
func (a *App) ConnectTelemetryStore(ctx context.Context) error {
	if a.Telemetry != nil {
		return nil
	}
	if !a.Config.Mongo.Enabled {
		return common.PermanentSystem(fmt.Errorf("mongo is disabled but this process requires the telemetry store"))
	}

	store, err := mongostore.Connect(ctx, a.Config.Mongo, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}

	a.Telemetry = store
	return nil
}

// StartBrowsers boots the shared headless browser pool. Idempotent.
func (a *App) StartBrowsers() error {
	if a.Browsers != nil {
		return nil
	}

	pool, err := browser.NewPool(browser.Config{
		Instances: a.Config.Browser.Instances,
		UserAgent: a.Config.Browser.UserAgent,
		Headless:  a.Config.Browser.Headless,
		NoSandbox: a.Config.Browser.NoSandbox,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to start browser pool: %w", err)
	}

	a.Browsers = pool
	return nil
}

// InitEmbedder builds the embedding LLM client. Idempotent.
func (a *App) InitEmbedder(ctx context.Context) error {
	if a.Embedder != nil {
		return nil
	}

	embedder, err := llm.NewEmbedder(ctx, a.Config.Embedding, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to init embedder: %w", err)
	}

	a.Embedder = embedder
	return nil
}

// InitGenerator builds the generation LLM client. Idempotent.
func (a *App) InitGenerator(ctx context.Context) error {
	if a.Generator != nil {
		return nil
	}

	generator, err := llm.NewGenerator(ctx, a.Config.Generation, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	a.Generator = generator
	return nil
}

// BuildServer assembles the query API process: all read endpoints, auth,
// and the admin operations. Requires the broker (re-trigger publishing) and
// Mongo when enabled; with Mongo disabled the telemetry endpoints answer 503.
func (a *App) BuildServer(ctx context.Context) (*server.Server, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, err
	}
	if a.Config.Mongo.Enabled {
		if err := a.ConnectTelemetryStore(ctx); err != nil {
			return nil, err
		}
	}
	if err := indicators.NewService(a.Indicators, a.Logger).EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	authSvc := auth.NewService(a.Users, a.Config.Auth, a.Logger)
	limiter := auth.NewLimiter(a.Config.Auth)
	reports := pdf.NewReportService(a.Logger)
	ttl := a.Config.Cache.TTL

	// A typed-nil store must not reach the handler's nil check.
	var telemetryStore interfaces.TelemetryStore
	if a.Telemetry != nil {
		telemetryStore = a.Telemetry
	}

	h := server.Handlers{
		Health:     handlers.NewHealthHandler(a.healthComponents(), a.Logger),
		Companies:  handlers.NewCompanyHandler(a.Catalog, a.Announcements, a.Cache, ttl, a.Logger),
		Indicators: handlers.NewIndicatorHandler(a.Indicators, a.Cache, ttl, a.Logger),
		Scores:     handlers.NewScoreHandler(a.Scores, a.Catalog, reports, a.Cache, ttl, a.Logger),
		Telemetry:  handlers.NewTelemetryHandler(telemetryStore, a.Cache, ttl, a.Logger),
		Auth:       handlers.NewAuthHandler(authSvc, a.Logger),
		Admin:      handlers.NewAdminHandler(a.Cache, a.Ingestion, a.Publisher, a.Logger),
		Middleware: handlers.NewMiddleware(authSvc, limiter, a.Logger),
	}

	return server.New(a.Config.Server, h, a.Logger), nil
}

func (a *App) healthComponents() map[string]handlers.ComponentPinger {
	components := map[string]handlers.ComponentPinger{
		"db": func(ctx context.Context) error {
			return a.Pool.Ping(ctx)
		},
	}
	if a.Cache.Enabled() {
		components["cache"] = a.Cache.Ping
	}
	if a.Broker != nil {
		components["broker"] = func(ctx context.Context) error {
			ch, err := a.Broker.Channel()
			if err != nil {
				return err
			}
			return ch.Close()
		}
	}
	if a.Telemetry != nil {
		components["mongo"] = a.Telemetry.Ping
	}
	return components
}

// BuildEmbeddingWorker assembles the embedding consumer: object store for
// PDFs, the embedding model, and the publisher for extraction hand-off.
func (a *App) BuildEmbeddingWorker(ctx context.Context, collector *monitor.Collector) (*embedworker.Worker, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, err
	}
	if err := a.ConnectObjects(ctx); err != nil {
		return nil, err
	}
	if err := a.InitEmbedder(ctx); err != nil {
		return nil, err
	}

	embedSvc := embeddings.NewService(a.Embedder, a.Config.Embedding, a.Logger)

	return embedworker.NewWorker(
		a.Objects,
		a.Ingestion,
		a.Chunks,
		pdf.NewExtractor(a.Logger),
		embedSvc,
		a.Publisher,
		collector,
		a.Logger,
	), nil
}

// BuildExtractionWorker assembles the extraction consumer: query embedder,
// generator, the indicator catalog (seeded here), and the scoring engine.
func (a *App) BuildExtractionWorker(ctx context.Context, collector *monitor.Collector) (*extractworker.Worker, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, err
	}
	if err := a.InitEmbedder(ctx); err != nil {
		return nil, err
	}
	if err := a.InitGenerator(ctx); err != nil {
		return nil, err
	}

	indicatorSvc := indicators.NewService(a.Indicators, a.Logger)
	if err := indicatorSvc.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	embedSvc := embeddings.NewService(a.Embedder, a.Config.Embedding, a.Logger)
	extractor := extraction.NewService(
		embedSvc,
		a.Generator,
		a.Chunks,
		a.Extractions,
		indicatorSvc,
		a.Config.Extraction,
		a.Config.Generation,
		a.Logger,
	)
	scorer := scoring.NewEngine(a.Extractions, indicatorSvc, a.Scores, a.Cache, a.Config.Scoring, a.Logger)

	return extractworker.NewWorker(a.Ingestion, a.Catalog, extractor, scorer, collector, a.Logger), nil
}

// BuildTelemetryWorkers assembles the scrape and sink consumers, which run
// together in one process and share a collector.
func (a *App) BuildTelemetryWorkers(ctx context.Context, collector *monitor.Collector) (*telemetryworker.ScrapeWorker, *telemetryworker.SinkWorker, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, nil, err
	}
	if err := a.ConnectTelemetryStore(ctx); err != nil {
		return nil, nil, err
	}
	if err := a.StartBrowsers(); err != nil {
		return nil, nil, err
	}

	scraper := telemetry.NewScraper(a.Browsers, a.Config.Telemetry, a.Logger)
	sink := telemetry.NewSink(a.Telemetry, a.Logger)

	scrape := telemetryworker.NewScrapeWorker(scraper, a.Publisher, collector, a.Logger)
	store := telemetryworker.NewSinkWorker(sink, collector, a.Logger)
	return scrape, store, nil
}

// BuildScheduler assembles the cron fan-out that queues dashboard links.
func (a *App) BuildScheduler(ctx context.Context) (*telemetry.Scheduler, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, err
	}
	return telemetry.NewScheduler(a.LiveLinks, a.Publisher, a.Config.Telemetry, a.Logger), nil
}

// BuildCatalogService assembles the exchange snapshot sync used by the sync
// subcommands. Postgres only.
func (a *App) BuildCatalogService() *catalog.Service {
	client := catalog.NewClient(a.Logger, catalog.WithRateLimit(a.Config.Catalog.RequestsPerSecond))
	return catalog.NewService(client, a.Catalog, a.Announcements, a.Config.Catalog, a.Logger)
}

// BuildFilingsService assembles the report ingestion sweep: browsers to
// resolve report URLs, the object store for archival, and the publisher to
// hand keys to the embedding queue.
func (a *App) BuildFilingsService(ctx context.Context) (*filings.Service, error) {
	if err := a.ConnectBroker(ctx); err != nil {
		return nil, err
	}
	if err := a.ConnectObjects(ctx); err != nil {
		return nil, err
	}
	if err := a.StartBrowsers(); err != nil {
		return nil, err
	}

	resolver := filings.NewResolver(a.Browsers, a.Announcements, a.Config.Filings, a.Logger)
	return filings.NewService(resolver, a.Objects, a.Ingestion, a.Catalog, a.Publisher, a.Config.Filings, a.Logger), nil
}

// Close releases everything the process connected, in reverse dependency
// order. Safe to call once regardless of which backends were opened.
func (a *App) Close() error {
	if a.Browsers != nil {
		a.Browsers.Shutdown()
		a.Logger.Info().Msg("Browser pool stopped")
	}

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close broker connection")
		} else {
			a.Logger.Info().Msg("Broker connection closed")
		}
	}

	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Telemetry.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close mongo client")
		}
		cancel()
	}

	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close embedder client")
		}
	}
	if a.Generator != nil {
		if err := a.Generator.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generator client")
		}
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close cache client")
		}
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info().Msg("Postgres pool closed")
	}

	return nil
}
