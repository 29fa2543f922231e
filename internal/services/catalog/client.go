package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/greenarc/esgpipe/internal/common"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate against the exchange.
	DefaultRateLimit = 2
)

// browserUserAgent is required by the exchange, which rejects obvious
// non-browser clients.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client fetches CSV snapshots from the exchange.
type Client struct {
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom request rate.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRateLimit
	}
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}
}

// NewClient creates a new exchange snapshot client.
func NewClient(logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchCSV downloads url and parses the body as CSV. Exchange CSVs are
// ragged and loosely quoted, so parsing is tolerant; structural validation
// is the caller's job.
func (c *Client) FetchCSV(ctx context.Context, url string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/csv,application/csv,text/plain,*/*")

	c.logger.Debug().Str("url", url).Msg("Fetching exchange CSV")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to fetch %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("exchange returned %d for %s: %s", resp.StatusCode, url, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, common.Transient(err)
		}
		return nil, common.PermanentSystem(err)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, common.PermanentInput(fmt.Errorf("failed to parse CSV from %s: %w", url, err))
	}

	c.logger.Debug().Str("url", url).Int("records", len(records)).Msg("Exchange CSV fetched")
	return records, nil
}
