package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Database    DatabaseConfig   `toml:"database"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Broker      BrokerConfig     `toml:"broker"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Generation  GenerationConfig `toml:"generation"`
	Extraction  ExtractionConfig `toml:"extraction"`
	Scoring     ScoringConfig    `toml:"scoring"`
	Cache       CacheConfig      `toml:"cache"`
	Auth        AuthConfig       `toml:"auth"`
	Mongo       MongoConfig      `toml:"mongo"`
	Catalog     CatalogConfig    `toml:"catalog"`
	Filings     FilingsConfig    `toml:"filings"`
	Telemetry   TelemetryConfig  `toml:"telemetry"`
	Monitor     MonitorConfig    `toml:"monitor"`
	Browser     BrowserConfig    `toml:"browser"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type DatabaseConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"min=1,max=65535"`
	Name     string `toml:"name" validate:"required"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	MaxConns int    `toml:"max_conns"`
}

// DSN returns the pgx connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

type ObjectStoreConfig struct {
	Endpoint  string `toml:"endpoint" validate:"required"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket" validate:"required"`
	Secure    bool   `toml:"secure"` // TLS to the endpoint
	Region    string `toml:"region"`
}

type BrokerConfig struct {
	Host      string        `toml:"host" validate:"required"`
	Port      int           `toml:"port" validate:"min=1,max=65535"`
	User      string        `toml:"user"`
	Password  string        `toml:"password"`
	Heartbeat time.Duration `toml:"heartbeat"`
}

// URL returns the AMQP connection URL for the configured broker.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", b.User, b.Password, b.Host, b.Port)
}

type EmbeddingConfig struct {
	ModelName    string `toml:"model_name" validate:"required"`
	Dimensions   int    `toml:"dimensions" validate:"min=1"`
	APIKey       string `toml:"api_key"`
	BatchSize    int    `toml:"batch_size" validate:"min=1"`
	ChunkSize    int    `toml:"chunk_size" validate:"min=1"`
	ChunkOverlap int    `toml:"chunk_overlap" validate:"min=0"`
}

type GenerationConfig struct {
	ModelName   string  `toml:"model_name" validate:"required"`
	Temperature float32 `toml:"temperature"`
	APIKey      string  `toml:"api_key"`
	MaxTokens   int     `toml:"max_tokens"`
}

type ExtractionConfig struct {
	TopK int `toml:"top_k" validate:"min=1"` // chunks retrieved per indicator
}

type ScoringConfig struct {
	MinConfidence float64 `toml:"min_confidence" validate:"min=0,max=1"`
}

type CacheConfig struct {
	Host    string        `toml:"host"`
	Port    int           `toml:"port"`
	DB      int           `toml:"db"`
	Enabled bool          `toml:"enabled"`
	TTL     CacheTTLConfig `toml:"ttl"`
}

// CacheTTLConfig holds per-scope cache expirations.
type CacheTTLConfig struct {
	Company    time.Duration `toml:"company"`
	Companies  time.Duration `toml:"companies"`
	Indicators time.Duration `toml:"indicators"`
	Scores     time.Duration `toml:"scores"`
	Telemetry  time.Duration `toml:"telemetry"`
}

type AuthConfig struct {
	JWTSecret      string        `toml:"jwt_secret"`
	TokenTTL       time.Duration `toml:"token_ttl"`
	RateLimitRPS   int           `toml:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst int           `toml:"rate_limit_burst" validate:"min=0"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Enabled  bool   `toml:"enabled"`
}

// CatalogConfig points at the upstream exchange CSV snapshots.
type CatalogConfig struct {
	EquityListURL     string  `toml:"equity_list_url"`
	AnnouncementsURL  string  `toml:"announcements_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

type FilingsConfig struct {
	FilingsURL      string        `toml:"filings_url"`      // exchange annual-report search page
	DocumentType    string        `toml:"document_type"`    // label used in object keys, e.g. "BRSR"
	BrowserTimeout  time.Duration `toml:"browser_timeout"`  // per-page chromedp budget
	DownloadTimeout time.Duration `toml:"download_timeout"` // report fetch budget
}

type TelemetryConfig struct {
	Schedule      string        `toml:"schedule"`       // cron spec for the fan-out job
	ScrapeTimeout time.Duration `toml:"scrape_timeout"` // per-dashboard chromedp budget
	SentinelValue string        `toml:"sentinel_value"` // reading value that marks a dead measurement
}

type MonitorConfig struct {
	Port           int           `toml:"port"`            // worker health/metrics listener
	StaleThreshold time.Duration `toml:"stale_threshold"` // degraded when last success is older
}

// BrowserConfig controls the headless browser pool shared by the scraping
// services.
type BrowserConfig struct {
	Instances int    `toml:"instances" validate:"min=0"`
	Headless  bool   `toml:"headless"`
	NoSandbox bool   `toml:"no_sandbox"` // required inside most containers
	UserAgent string `toml:"user_agent"`
}

// NewDefaultConfig returns configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "esg",
			User:     "esg",
			MaxConns: 8,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "esg-reports",
			Secure:   false,
			Region:   "us-east-1",
		},
		Broker: BrokerConfig{
			Host:      "localhost",
			Port:      5672,
			User:      "guest",
			Password:  "guest",
			Heartbeat: 60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			ModelName:    "gemini-embedding-001",
			Dimensions:   3072,
			BatchSize:    32,
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Generation: GenerationConfig{
			ModelName:   "gemini-2.5-flash",
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		Extraction: ExtractionConfig{
			TopK: 10,
		},
		Scoring: ScoringConfig{
			MinConfidence: 0.3,
		},
		Cache: CacheConfig{
			Host:    "localhost",
			Port:    6379,
			DB:      0,
			Enabled: true,
			TTL: CacheTTLConfig{
				Company:    time.Hour,
				Companies:  15 * time.Minute,
				Indicators: 24 * time.Hour,
				Scores:     time.Hour,
				Telemetry:  time.Minute,
			},
		},
		Auth: AuthConfig{
			TokenTTL:       24 * time.Hour,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "esg_telemetry",
			Enabled:  true,
		},
		Catalog: CatalogConfig{
			EquityListURL:     "https://archives.nseindia.com/content/equities/EQUITY_L.csv",
			AnnouncementsURL:  "https://archives.nseindia.com/corporate/announcements.csv",
			RequestsPerSecond: 2,
		},
		Filings: FilingsConfig{
			FilingsURL:      "https://www.nseindia.com/companies-listing/corporate-filings-annual-reports",
			DocumentType:    "BRSR",
			BrowserTimeout:  45 * time.Second,
			DownloadTimeout: 60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Schedule:      "@every 5m",
			ScrapeTimeout: 45 * time.Second,
			SentinelValue: "---",
		},
		Monitor: MonitorConfig{
			Port:           9090,
			StaleThreshold: 24 * time.Hour,
		},
		Browser: BrowserConfig{
			Instances: 2,
			Headless:  true,
			NoSandbox: true,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct constraints. A failure here
// is a startup-time system fault: callers log and exit rather than limp along.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return PermanentSystem(fmt.Errorf("invalid configuration: %w", err))
	}
	if c.Embedding.ChunkOverlap >= c.Embedding.ChunkSize {
		return PermanentSystem(fmt.Errorf("invalid configuration: chunk_overlap %d must be smaller than chunk_size %d",
			c.Embedding.ChunkOverlap, c.Embedding.ChunkSize))
	}
	return nil
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ESG_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Database configuration
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.Name = name
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	// Object store configuration
	if endpoint := os.Getenv("OBJECT_STORE_ENDPOINT"); endpoint != "" {
		config.ObjectStore.Endpoint = endpoint
	}
	if accessKey := os.Getenv("OBJECT_STORE_ACCESS_KEY"); accessKey != "" {
		config.ObjectStore.AccessKey = accessKey
	}
	if secretKey := os.Getenv("OBJECT_STORE_SECRET_KEY"); secretKey != "" {
		config.ObjectStore.SecretKey = secretKey
	}
	if bucket := os.Getenv("OBJECT_STORE_BUCKET"); bucket != "" {
		config.ObjectStore.Bucket = bucket
	}
	if secure := os.Getenv("OBJECT_STORE_SECURE"); secure != "" {
		if s, err := strconv.ParseBool(secure); err == nil {
			config.ObjectStore.Secure = s
		}
	}

	// Broker configuration
	if host := os.Getenv("BROKER_HOST"); host != "" {
		config.Broker.Host = host
	}
	if port := os.Getenv("BROKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Broker.Port = p
		}
	}
	if user := os.Getenv("BROKER_USER"); user != "" {
		config.Broker.User = user
	}
	if password := os.Getenv("BROKER_PASSWORD"); password != "" {
		config.Broker.Password = password
	}
	if heartbeat := os.Getenv("BROKER_HEARTBEAT"); heartbeat != "" {
		if d, err := time.ParseDuration(heartbeat); err == nil {
			config.Broker.Heartbeat = d
		} else if secs, err := strconv.Atoi(heartbeat); err == nil {
			config.Broker.Heartbeat = time.Duration(secs) * time.Second
		}
	}

	// Embedding configuration
	if model := os.Getenv("EMBED_MODEL_NAME"); model != "" {
		config.Embedding.ModelName = model
	}
	if dims := os.Getenv("EMBED_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			config.Embedding.Dimensions = d
		}
	}
	if key := os.Getenv("EMBED_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if batch := os.Getenv("EMBED_BATCH_SIZE"); batch != "" {
		if b, err := strconv.Atoi(batch); err == nil {
			config.Embedding.BatchSize = b
		}
	}
	if size := os.Getenv("CHUNK_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Embedding.ChunkSize = s
		}
	}
	if overlap := os.Getenv("CHUNK_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Embedding.ChunkOverlap = o
		}
	}

	// Generation configuration
	if model := os.Getenv("GEN_MODEL_NAME"); model != "" {
		config.Generation.ModelName = model
	}
	if temp := os.Getenv("GEN_TEMPERATURE"); temp != "" {
		if t, err := strconv.ParseFloat(temp, 32); err == nil {
			config.Generation.Temperature = float32(t)
		}
	}
	if key := os.Getenv("GEN_API_KEY"); key != "" {
		config.Generation.APIKey = key
	}

	// Extraction configuration
	if topK := os.Getenv("EXTRACT_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Extraction.TopK = k
		}
	}

	// Scoring configuration
	if minConf := os.Getenv("SCORING_MIN_CONFIDENCE"); minConf != "" {
		if m, err := strconv.ParseFloat(minConf, 64); err == nil {
			config.Scoring.MinConfidence = m
		}
	}

	// Cache configuration
	if host := os.Getenv("CACHE_HOST"); host != "" {
		config.Cache.Host = host
	}
	if port := os.Getenv("CACHE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Cache.Port = p
		}
	}
	if db := os.Getenv("CACHE_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			config.Cache.DB = d
		}
	}
	if enabled := os.Getenv("CACHE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = e
		}
	}

	// Auth configuration
	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if ttl := os.Getenv("AUTH_TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Auth.TokenTTL = d
		}
	}
	if rps := os.Getenv("AUTH_RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.Atoi(rps); err == nil {
			config.Auth.RateLimitRPS = r
		}
	}
	if burst := os.Getenv("AUTH_RATE_LIMIT_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			config.Auth.RateLimitBurst = b
		}
	}

	// Browser configuration
	if instances := os.Getenv("BROWSER_INSTANCES"); instances != "" {
		if n, err := strconv.Atoi(instances); err == nil {
			config.Browser.Instances = n
		}
	}
	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}

	// Mongo configuration
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		config.Mongo.Database = db
	}
	if enabled := os.Getenv("MONGO_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Mongo.Enabled = e
		}
	}
}
