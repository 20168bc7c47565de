package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const enrichedSummaryLimit = 500

// ContentExtractor derives a summary from the article page for entries that
// arrive without one.
type ContentExtractor struct {
	fetcher *Fetcher
	timeout time.Duration
}

func NewContentExtractor(fetcher *Fetcher, timeout time.Duration) *ContentExtractor {
	return &ContentExtractor{
		fetcher: fetcher,
		timeout: timeout,
	}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}

	var text string
	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
	}

	if text == "" {
		text = metaDescription(data)
	}

	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > enrichedSummaryLimit {
		text = string([]rune(text)[:enrichedSummaryLimit])
	}

	slog.Debug("Content extracted successfully", "url", pageURL, "content_length", len(text))

	return text, nil
}

// Enrich fills in the summary of items that have a link but no summary.
// Failures leave the item unchanged.
func (e *ContentExtractor) Enrich(ctx context.Context, items []NewsItem) []NewsItem {
	for i := range items {
		if items[i].Summary != "" || items[i].Link == "" {
			continue
		}

		data, err := e.fetcher.Fetch(ctx, items[i].Link, e.timeout)
		if err != nil {
			slog.Debug("Failed to fetch article for summary", "url", items[i].Link, "error", err)
			continue
		}

		summary, err := e.Run(data, items[i].Link)
		if err != nil {
			slog.Debug("Failed to extract article summary", "url", items[i].Link, "error", err)
			continue
		}

		items[i].Summary = summary
	}

	return items
}

func metaDescription(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}

	return ""
}
