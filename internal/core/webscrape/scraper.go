// Package webscrape extracts URLs from free text and pulls the main textual
// content of the pages they point to.
package webscrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 20 * time.Second
	maxRetries     = 3
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')]+`)

// ExtractURLs returns every well-formed http(s) URL embedded in the text.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	var out []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;")
		if IsValidURL(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsValidURL checks for an http(s) scheme and a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type Scraper struct {
	httpc   *http.Client
	limiter *rate.Limiter

	sleep func(time.Duration)
}

// NewScraper builds a scraper throttled to at most two outbound fetches per
// second so a URL-heavy query cannot hammer a target host.
func NewScraper() *Scraper {
	return &Scraper{
		httpc:   &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		sleep:   time.Sleep,
	}
}

// FetchContent downloads the page and extracts its main textual content.
// 429 responses are retried with capped exponential backoff; any other
// failure is terminal for that URL.
func (s *Scraper) FetchContent(ctx context.Context, pageURL string) (string, error) {
	if !IsValidURL(pageURL) {
		return "", fmt.Errorf("invalid url: %s", pageURL)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			if delay > maxBackoff {
				delay = maxBackoff
			}
			s.sleep(delay)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", "BidBot/1.0 (+https://bidbot.ai)")

		resp, err := s.httpc.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", pageURL, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastStatus = resp.StatusCode
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", pageURL, err)
		}
		return extractMainContent(doc), nil
	}
	return "", fmt.Errorf("fetch %s: rate limited after %d retries (status %d)", pageURL, maxRetries, lastStatus)
}

// extractMainContent pulls the title plus paragraph and heading text,
// skipping boilerplate containers.
func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}

	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n")
	})

	return strings.TrimSpace(b.String())
}
