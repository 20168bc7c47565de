package feed

import (
	"strings"
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []NewsItem{
		{Title: "Test Item 1", Summary: "Test summary"},
		{Title: "Test Item 2", Summary: "Another summary"},
	}

	result := filterer.Run(items, &Config{})

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
	for i, item := range result {
		if item.IsFiltered {
			t.Errorf("Item %d should not be filtered when no filters are configured", i)
		}
	}
}

func TestFilterer_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []NewsItem{
		{Title: "Fossil found in Utah"},
		{Title: "Stock markets rally"},
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"FOSSIL", "dinosaur"}},
		},
	}

	result := filterer.Run(items, feedConfig)

	if result[0].IsFiltered {
		t.Errorf("Expected first item kept, got reason: %s", result[0].FilterReason)
	}
	if !result[1].IsFiltered {
		t.Error("Expected second item filtered")
	}
	if !strings.Contains(result[1].FilterReason, "does not contain") {
		t.Errorf("Expected include reason, got: %s", result[1].FilterReason)
	}
}

func TestFilterer_ExcludeWins(t *testing.T) {
	filterer := NewFilterer()

	items := []NewsItem{
		{Title: "Dinosaur toy sale", Summary: "Sponsored", Categories: []string{"Deals"}},
		{Title: "Dinosaur eggs discovered", Link: "https://example.com/eggs"},
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"dinosaur"}},
			{Field: "categories", Excludes: []string{"deals"}},
			{Field: "summary", Excludes: []string{"sponsored"}},
		},
	}

	result := filterer.Run(items, feedConfig)

	if !result[0].IsFiltered {
		t.Error("Expected sponsored item filtered")
	}
	if result[0].FilterReason != "Excluded by categories filter: contains 'deals'" {
		t.Errorf("Unexpected reason: %s", result[0].FilterReason)
	}
	if result[1].IsFiltered {
		t.Errorf("Expected second item kept, got reason: %s", result[1].FilterReason)
	}
}

func TestFilterer_LinkAndAuthors(t *testing.T) {
	filterer := NewFilterer()

	items := []NewsItem{
		{Title: "A", Link: "https://example.com/podcast/1", Authors: []string{"Jane"}},
		{Title: "B", Link: "https://example.com/news/2", Authors: []string{"Bot Writer"}},
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "link", Excludes: []string{"/podcast/"}},
			{Field: "authors", Excludes: []string{"bot"}},
		},
	}

	result := filterer.Run(items, feedConfig)

	if !result[0].IsFiltered || !result[1].IsFiltered {
		t.Errorf("Expected both items filtered, got %v and %v", result[0].IsFiltered, result[1].IsFiltered)
	}
}

func TestFilterer_NormalizedMatching(t *testing.T) {
	filterer := NewFilterer()

	items := []NewsItem{
		{Title: "ＦＯＳＳＩＬ bed mapped"},
		{Title: "Quarterly earnings"},
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"  fossil ", ""}},
		},
	}

	result := filterer.Run(items, feedConfig)

	if result[0].IsFiltered {
		t.Errorf("Expected full-width title to match, got reason: %s", result[0].FilterReason)
	}
	if !result[1].IsFiltered {
		t.Error("Expected unrelated title filtered")
	}
	if len(items[1].FilterReason) != 0 {
		t.Error("Expected input items left untouched")
	}
}
