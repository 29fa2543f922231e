package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/browser"
)

// Scraper renders one pollution-control dashboard in a headless browser and
// parses its widget readings into a snapshot. Dashboards are plain text once
// rendered: each widget is a run of lines naming the station followed by
// (measurement, value, time) triples.
type Scraper struct {
	pool   *browser.Pool
	cfg    common.TelemetryConfig
	logger arbor.ILogger
}

var _ interfaces.DashboardScraper = (*Scraper)(nil)

// NewScraper creates a dashboard scraper backed by the given browser pool.
func NewScraper(pool *browser.Pool, cfg common.TelemetryConfig, logger arbor.ILogger) *Scraper {
	return &Scraper{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
	}
}

// Scrape renders the dashboard and returns its parsed snapshot. A page that
// renders but yields no readings is a permanent-input failure: the dashboard
// layout changed or the link points somewhere else entirely.
func (s *Scraper) Scrape(ctx context.Context, link models.LiveLink) (*models.TelemetrySnapshot, error) {
	if link.URL == "" {
		return nil, common.PermanentInput(fmt.Errorf("dashboard link has no URL"))
	}

	text, err := s.renderDashboard(ctx, link.URL)
	if err != nil {
		return nil, err
	}

	readings := parseDashboard(text, s.sentinel())
	if len(readings) == 0 {
		return nil, common.PermanentInput(fmt.Errorf("no readings parsed from %s", link.URL))
	}

	s.logger.Debug().
		Str("company", link.CompanyName).
		Int("stations", len(readings)).
		Msg("Dashboard scraped")

	return &models.TelemetrySnapshot{
		CompanyName:  link.CompanyName,
		Industry:     link.Industry,
		Jurisdiction: link.Jurisdiction,
		SourceURL:    link.URL,
		Readings:     readings,
		ScrapedAt:    time.Now().UTC(),
	}, nil
}

// renderDashboard loads the dashboard in a fresh tab and returns the rendered
// body text.
func (s *Scraper) renderDashboard(ctx context.Context, pageURL string) (string, error) {
	browserCtx, err := s.pool.Get()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeout := s.cfg.ScrapeTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	// Bail out early if the caller already gave up.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var text string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Dashboards draw their widgets with XHR after load.
		chromedp.Sleep(2*time.Second),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", common.Transient(fmt.Errorf("failed to render dashboard %s: %w", pageURL, err))
	}

	return text, nil
}

func (s *Scraper) sentinel() string {
	if s.cfg.SentinelValue != "" {
		return s.cfg.SentinelValue
	}
	return "---"
}

// parseDashboard splits rendered body text into widget blocks and decodes
// each one. Blocks that yield no complete triple are page chrome and are
// dropped; blocks repeating a station name merge into it.
func parseDashboard(text, sentinel string) map[string]map[string]models.Reading {
	readings := make(map[string]map[string]models.Reading)
	for _, block := range splitBlocks(text) {
		station, rows := parseBlock(block, sentinel)
		if len(rows) == 0 {
			continue
		}
		if existing, ok := readings[station]; ok {
			for name, r := range rows {
				existing[name] = r
			}
			continue
		}
		readings[station] = rows
	}
	return readings
}

// splitBlocks groups non-blank lines into blocks separated by blank lines.
func splitBlocks(text string) [][]string {
	var blocks [][]string
	var current []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// parseBlock decodes one widget block: the first line names the station, the
// rest are (measurement, value, time) triples. The time cell carries a
// " Time" label suffix which is stripped. A value equal to the sentinel marks
// the measurement as not operational. Trailing lines that do not complete a
// triple are ignored.
func parseBlock(lines []string, sentinel string) (string, map[string]models.Reading) {
	if len(lines) < 4 {
		return "", nil
	}

	station := lines[0]
	rest := lines[1:]
	rows := make(map[string]models.Reading)
	for i := 0; i+2 < len(rest); i += 3 {
		value := rest[i+1]
		status := models.StatusOperational
		if value == sentinel {
			status = models.StatusNotOperational
		}
		rows[rest[i]] = models.Reading{
			Status: status,
			Value:  value,
			Time:   strings.TrimSuffix(rest[i+2], " Time"),
		}
	}
	if len(rows) == 0 {
		return "", nil
	}
	return station, rows
}
