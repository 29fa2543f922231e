package filings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/browser"
)

// reportKeywords mark a link as a sustainability filing. A candidate must be
// a PDF and mention the reporting year; keywords and the document type only
// adjust its rank among qualifying links.
var reportKeywords = []string{
	"business responsibility",
	"sustainability",
	"annual report",
	"integrated report",
	"esg",
}

// Resolver finds the report PDF URL for a company-year. The exchange filings
// page is rendered in a headless browser because the listing is built by
// JavaScript; announcement attachments serve as the fallback source.
type Resolver struct {
	pool          *browser.Pool
	announcements interfaces.AnnouncementStore
	cfg           common.FilingsConfig
	logger        arbor.ILogger
}

var _ interfaces.ReportResolver = (*Resolver)(nil)

// NewResolver creates a report resolver backed by the given browser pool.
func NewResolver(pool *browser.Pool, announcements interfaces.AnnouncementStore, cfg common.FilingsConfig, logger arbor.ILogger) *Resolver {
	return &Resolver{
		pool:          pool,
		announcements: announcements,
		cfg:           cfg,
		logger:        logger,
	}
}

// ResolveReportURL renders the filings page for the symbol and picks the
// best-ranked PDF link for the year. When the page yields nothing it falls
// back to announcement attachments. No URL from either source is a
// permanent-input failure: the company simply has not filed for that year.
func (r *Resolver) ResolveReportURL(ctx context.Context, company *models.Company, year int) (string, error) {
	if company == nil || company.Symbol == "" {
		return "", common.PermanentInput(fmt.Errorf("company symbol is required"))
	}

	html, err := r.renderFilingsPage(ctx, company.Symbol)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("symbol", company.Symbol).
			Msg("Filings page render failed, falling back to announcements")
	} else if link, ok := pickReportLink(html, r.cfg.FilingsURL, company.Symbol, year, r.cfg.DocumentType); ok {
		r.logger.Info().
			Str("symbol", company.Symbol).
			Int("year", year).
			Str("url", link).
			Msg("Report URL resolved from filings page")
		return link, nil
	}

	if link, ok := r.fromAnnouncements(ctx, company.Symbol, year); ok {
		r.logger.Info().
			Str("symbol", company.Symbol).
			Int("year", year).
			Str("url", link).
			Msg("Report URL resolved from announcements")
		return link, nil
	}

	return "", common.PermanentInput(fmt.Errorf("no %s report found for %s year %d", r.cfg.DocumentType, company.Symbol, year))
}

// renderFilingsPage loads the exchange search page for the symbol in a fresh
// tab and returns the rendered HTML.
func (r *Resolver) renderFilingsPage(ctx context.Context, symbol string) (string, error) {
	browserCtx, err := r.pool.Get()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeout := r.cfg.BrowserTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	// Bail out early if the caller already gave up.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pageURL := fmt.Sprintf("%s?symbol=%s", r.cfg.FilingsURL, url.QueryEscape(symbol))

	// The exchange drops requests that do not look like a browser session.
	headers := network.Headers{"Accept-Language": "en-US,en;q=0.9"}
	if origin, err := url.Parse(r.cfg.FilingsURL); err == nil && origin.Host != "" {
		headers["Referer"] = origin.Scheme + "://" + origin.Host + "/"
	}

	var html string
	err = chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// The filings table is filled in by XHR after load.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", common.Transient(fmt.Errorf("failed to render filings page for %s: %w", symbol, err))
	}

	return html, nil
}

// fromAnnouncements scans recent announcements for a report attachment. The
// broadcast may land in the reporting year or the year after, when the
// report for the prior fiscal year is actually published.
func (r *Resolver) fromAnnouncements(ctx context.Context, symbol string, year int) (string, bool) {
	if r.announcements == nil {
		return "", false
	}

	rows, err := r.announcements.ListBySymbol(ctx, symbol, 200)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", symbol).Msg("Announcement lookup failed")
		return "", false
	}

	for _, ann := range rows {
		if ann.AttachmentURL == "" || !strings.Contains(strings.ToLower(ann.AttachmentURL), ".pdf") {
			continue
		}
		if !subjectMentionsReport(ann.Subject) {
			continue
		}
		broadcastYear := ann.BroadcastAt.Year()
		if broadcastYear != year && broadcastYear != year+1 {
			continue
		}
		return ann.AttachmentURL, true
	}

	return "", false
}

func subjectMentionsReport(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range reportKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// pickReportLink parses rendered page HTML and returns the absolute URL of
// the highest-ranked PDF link mentioning the year. Relative hrefs are
// resolved against baseURL.
func pickReportLink(html, baseURL, symbol string, year int, docType string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	bestHref := ""
	bestScore := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, ".pdf") {
			return
		}

		haystack := lower + " " + strings.ToLower(strings.TrimSpace(sel.Text()))
		if !mentionsYear(haystack, year) {
			return
		}

		score := 1
		if docType != "" && strings.Contains(haystack, strings.ToLower(docType)) {
			score += 4
		}
		for _, kw := range reportKeywords {
			if strings.Contains(haystack, kw) {
				score += 2
				break
			}
		}
		if symbol != "" && strings.Contains(haystack, strings.ToLower(symbol)) {
			score++
		}

		if score > bestScore {
			bestScore = score
			bestHref = href
		}
	})

	if bestHref == "" {
		return "", false
	}

	if base != nil {
		if ref, err := url.Parse(bestHref); err == nil {
			return base.ResolveReference(ref).String(), true
		}
	}
	return bestHref, true
}

// mentionsYear matches the calendar year and the Indian fiscal renderings of
// it: a 2024 report may be labelled "2024", "2023-24", or "2023-2024".
func mentionsYear(s string, year int) bool {
	if strings.Contains(s, strconv.Itoa(year)) {
		return true
	}
	prev := year - 1
	if strings.Contains(s, fmt.Sprintf("%d-%02d", prev, year%100)) {
		return true
	}
	return strings.Contains(s, fmt.Sprintf("%d-%d", prev, year))
}
