package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// Config holds browser pool settings.
type Config struct {
	Instances int
	UserAgent string
	Headless  bool
	NoSandbox bool
}

// Pool manages headless browser contexts shared by the scraping services.
// Browsers are created eagerly and handed out round-robin; callers derive a
// tab context with their own timeout so one slow page cannot pin a browser.
type Pool struct {
	mu           sync.Mutex
	browsers     []context.Context
	cancels      []context.CancelFunc
	allocCancels []context.CancelFunc
	next         int
	logger       arbor.ILogger
}

// NewPool starts cfg.Instances browsers and verifies each one responds
// before handing it out. Failing to start any browser is fatal.
func NewPool(cfg Config, logger arbor.ILogger) (*Pool, error) {
	if cfg.Instances <= 0 {
		cfg.Instances = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	p := &Pool{logger: logger}

	for i := 0; i < cfg.Instances; i++ {
		if err := p.startBrowser(cfg); err != nil {
			if len(p.browsers) == 0 {
				p.Shutdown()
				return nil, common.PermanentSystem(fmt.Errorf("failed to start any browser: %w", err))
			}
			logger.Warn().Err(err).Int("started", len(p.browsers)).Msg("Browser instance failed to start")
		}
	}

	logger.Info().Int("browsers", len(p.browsers)).Msg("Browser pool ready")
	return p, nil
}

func (p *Pool) startBrowser(cfg Config) error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.cancels = append(p.cancels, browserCancel)
	p.allocCancels = append(p.allocCancels, allocCancel)
	return nil
}

// Get returns the next browser context round-robin.
func (p *Pool) Get() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.browsers) == 0 {
		return nil, common.PermanentSystem(fmt.Errorf("browser pool is empty"))
	}

	ctx := p.browsers[p.next%len(p.browsers)]
	p.next++
	return ctx, nil
}

// Shutdown closes every browser. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, cancel := range p.cancels {
		cancel()
	}
	for _, cancel := range p.allocCancels {
		cancel()
	}
	p.browsers = nil
	p.cancels = nil
	p.allocCancels = nil
	p.next = 0
}
