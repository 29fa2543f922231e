package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// Connect opens a pgx pool against the configured database and registers
// pgvector types on every connection.
func Connect(ctx context.Context, cfg common.DatabaseConfig, logger arbor.ILogger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to parse database config: %w", err))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to create database pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, common.PermanentSystem(fmt.Errorf("database unreachable at %s:%d: %w", cfg.Host, cfg.Port, err))
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("Connected to Postgres")

	return pool, nil
}

// EnsureSchema creates every table the pipeline needs. Statements are
// idempotent; dims fixes the width of the embedding column. HNSW indexes
// cap at 2000 dimensions for the vector type, so wider embeddings are
// indexed through a halfvec cast.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dims int, logger arbor.ILogger) error {
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		var installed bool
		checkErr := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&installed)
		if checkErr != nil || !installed {
			return common.PermanentSystem(fmt.Errorf("pgvector extension unavailable: %w", err))
		}
	}

	vectorIndex := `CREATE INDEX IF NOT EXISTS idx_document_embeddings_vector
		 ON document_embeddings USING hnsw (embedding vector_cosine_ops)`
	if dims > 2000 {
		vectorIndex = fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_document_embeddings_vector
			 ON document_embeddings USING hnsw ((embedding::halfvec(%d)) halfvec_cosine_ops)`, dims)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS company_catalog (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			industry TEXT NOT NULL DEFAULT '',
			series TEXT NOT NULL DEFAULT '',
			isin TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS announcements (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			subject TEXT NOT NULL,
			attachment_url TEXT NOT NULL DEFAULT '',
			broadcast_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (symbol, broadcast_at, subject)
		)`,
		`CREATE TABLE IF NOT EXISTS ingestion_metadata (
			object_key TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			year INT NOT NULL,
			document_type TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_embeddings (
			id BIGSERIAL PRIMARY KEY,
			object_key TEXT NOT NULL REFERENCES ingestion_metadata(object_key) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			year INT NOT NULL,
			page INT NOT NULL,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dims),
		`CREATE INDEX IF NOT EXISTS idx_document_embeddings_symbol_year
			ON document_embeddings (symbol, year)`,
		vectorIndex,
		`CREATE TABLE IF NOT EXISTS brsr_indicators (
			code TEXT PRIMARY KEY,
			attribute INT NOT NULL CHECK (attribute BETWEEN 1 AND 9),
			parameter_name TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			polarity TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL CHECK (weight > 0),
			min_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_value DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS extracted_indicators (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES company_catalog(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			year INT NOT NULL,
			indicator_code TEXT NOT NULL REFERENCES brsr_indicators(code),
			raw_value TEXT NOT NULL DEFAULT '',
			numeric_value DOUBLE PRECISION,
			unit TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			source_pages INT[],
			reasoning TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (company_id, year, indicator_code)
		)`,
		`CREATE TABLE IF NOT EXISTS esg_scores (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES company_catalog(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			year INT NOT NULL,
			environment DOUBLE PRECISION,
			social DOUBLE PRECISION,
			governance DOUBLE PRECISION,
			overall DOUBLE PRECISION,
			min_confidence DOUBLE PRECISION NOT NULL,
			breakdown JSONB NOT NULL DEFAULT '[]',
			computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (company_id, year)
		)`,
		`CREATE TABLE IF NOT EXISTS live_links (
			id BIGSERIAL PRIMARY KEY,
			company_name TEXT NOT NULL,
			industry TEXT NOT NULL DEFAULT '',
			jurisdiction TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			prefix TEXT NOT NULL,
			key_hash TEXT NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			head := strings.Fields(stmt)
			return common.PermanentSystem(fmt.Errorf("schema statement %q failed: %w", strings.Join(head[:min(4, len(head))], " "), err))
		}
	}

	logger.Info().Int("dimensions", dims).Msg("Database schema ensured")
	return nil
}
