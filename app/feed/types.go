package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// NewsItem is one feed entry. It is not modified after selection.
type NewsItem struct {
	Source     string
	Title      string
	Summary    string
	Link       string
	Published  *time.Time
	Authors    []string
	Categories []string

	IsFiltered   bool
	FilterReason string
}

// Configuration types

type Config struct {
	Name          string         // Derived from filename (without .yml extension)
	URL           string         `yaml:"url"`
	DisplayName   string         `yaml:"display_name"`
	LocalizedName string         `yaml:"localized_name"`
	Emoji         string         `yaml:"emoji"`
	Hashtag       string         `yaml:"hashtag"`
	Settings      ConfigSettings `yaml:"settings"`
	Filters       []ConfigFilter `yaml:"filters"`
}

// SourceName is the name shown in messages and stored with classifications.
func (c *Config) SourceName() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	FreshnessHours  int  `yaml:"freshness_hours"`
	Timeout         int  `yaml:"timeout"`        // seconds
	EnrichSummary   bool `yaml:"enrich_summary"` // fetch the article when the entry has no summary
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
