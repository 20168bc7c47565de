package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses the feed document and returns its entries in document order.
func (p *Parser) Run(data []byte, source string) (*Metadata, []NewsItem, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	items := make([]NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item, source))
	}

	return metadata, items, nil
}

// Select keeps the first maxItems entries and drops those published before
// the freshness window. Entries without a date are kept.
func Select(items []NewsItem, maxItems int, freshness time.Duration, now time.Time) []NewsItem {
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	if freshness <= 0 {
		return items
	}

	cutoff := now.Add(-freshness)
	selected := make([]NewsItem, 0, len(items))
	for _, item := range items {
		if item.Published != nil && item.Published.Before(cutoff) {
			continue
		}
		selected = append(selected, item)
	}

	return selected
}

func (p *Parser) normalizeItem(item *gofeed.Item, source string) NewsItem {
	normalized := NewsItem{
		Source:     source,
		Title:      strings.TrimSpace(item.Title),
		Link:       strings.TrimSpace(item.Link),
		Summary:    htmlToText(item.Description),
		Categories: item.Categories,
	}

	if normalized.Summary == "" {
		normalized.Summary = htmlToText(item.Content)
	}

	switch {
	case item.PublishedParsed != nil:
		published := *item.PublishedParsed
		normalized.Published = &published
	case item.UpdatedParsed != nil:
		updated := *item.UpdatedParsed
		normalized.Published = &updated
	}

	normalized.Authors = p.extractAuthors(item)

	return normalized
}

// htmlToText flattens an HTML fragment to whitespace-collapsed text.
func htmlToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}

	text := fragment
	if strings.ContainsAny(fragment, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err == nil {
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				authorStr := p.formatAuthor(author.Name, author.Email)
				if authorStr != "" {
					authors = append(authors, authorStr)
				}
			}
		}
	} else if item.Author != nil {
		authorStr := p.formatAuthor(item.Author.Name, item.Author.Email)
		if authorStr != "" {
			authors = append(authors, authorStr)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}
