package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
	<meta name="description" content="Meta description of the find.">
</head>
<body>
	<header><nav>Navigation</nav></header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>Paleontologists working in Montana uncovered a nearly complete Tyrannosaurus rex skeleton this summer, one of the best preserved specimens recovered in decades.</p>
			<p>The team spent three months excavating the bones, which were found in rock layers from the Late Cretaceous. The skull alone weighs several hundred kilograms.</p>
			<p>Researchers plan to study growth rings in the leg bones to estimate the age of the animal at death, and the skeleton will later go on display.</p>
		</article>
	</main>
	<footer><p>Copyright 2024</p></footer>
</body>
</html>`

func TestContentExtractor_Run(t *testing.T) {
	extractor := NewContentExtractor(NewFetcher(nil, "test"), time.Second)

	text, err := extractor.Run([]byte(articleHTML), "https://example.com/trex")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(text, "Paleontologists working in Montana") {
		t.Errorf("Expected article text, got %q", text)
	}
	if strings.Contains(text, "\n") || strings.Contains(text, "  ") {
		t.Errorf("Expected collapsed whitespace, got %q", text)
	}
	if len([]rune(text)) > enrichedSummaryLimit {
		t.Errorf("Expected at most %d runes, got %d", enrichedSummaryLimit, len([]rune(text)))
	}
}

func TestContentExtractor_MetaFallback(t *testing.T) {
	extractor := NewContentExtractor(NewFetcher(nil, "test"), time.Second)

	text, err := extractor.Run([]byte(`<html><head><meta property="og:description" content="OG text"></head><body></body></html>`), "https://example.com/x")
	if err != nil {
		t.Fatalf("Expected meta fallback, got %v", err)
	}
	if text != "OG text" {
		t.Errorf("Expected 'OG text', got %q", text)
	}
}

func TestContentExtractor_Empty(t *testing.T) {
	extractor := NewContentExtractor(NewFetcher(nil, "test"), time.Second)

	if _, err := extractor.Run(nil, "https://example.com"); err == nil {
		t.Error("Expected error for empty data")
	}
}

func TestContentExtractor_Enrich(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	extractor := NewContentExtractor(NewFetcher(server.Client(), "DinoRelay/test"), time.Second)

	items := []NewsItem{
		{Title: "Has summary", Summary: "Keep me", Link: server.URL + "/a"},
		{Title: "Needs summary", Link: server.URL + "/b"},
		{Title: "Broken", Link: server.URL + "/missing"},
		{Title: "No link"},
	}

	enriched := extractor.Enrich(context.Background(), items)

	if enriched[0].Summary != "Keep me" {
		t.Errorf("Expected existing summary kept, got %q", enriched[0].Summary)
	}
	if !strings.Contains(enriched[1].Summary, "Tyrannosaurus rex skeleton") {
		t.Errorf("Expected enriched summary, got %q", enriched[1].Summary)
	}
	if enriched[2].Summary != "" || enriched[3].Summary != "" {
		t.Error("Expected failures to leave summary empty")
	}
	if userAgent != "DinoRelay/test" {
		t.Errorf("Expected User-Agent header, got %q", userAgent)
	}
}

func TestFetcher_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test")

	if _, err := fetcher.Fetch(context.Background(), server.URL, time.Second); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected HTTP 500 error, got %v", err)
	}

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/slow", 20*time.Millisecond); err == nil {
		t.Error("Expected timeout error")
	}
}
