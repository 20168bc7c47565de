package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Filterer marks items that a source's include/exclude rules reject, so they
// never reach classification. Matching is case-insensitive substring search
// over NFKC-normalized text.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

type sourceRule struct {
	field    string
	includes []string
	excludes []string
}

func (f *Filterer) Run(items []NewsItem, source *Config) []NewsItem {
	if len(source.Filters) == 0 {
		return items
	}

	rules := compileRules(source.Filters)

	marked := make([]NewsItem, len(items))
	for i, item := range items {
		item.IsFiltered, item.FilterReason = checkRules(rules, item)
		marked[i] = item
	}

	return marked
}

func compileRules(filters []ConfigFilter) []sourceRule {
	rules := make([]sourceRule, 0, len(filters))
	for _, filter := range filters {
		rules = append(rules, sourceRule{
			field:    filter.Field,
			includes: foldAll(filter.Includes),
			excludes: foldAll(filter.Excludes),
		})
	}
	return rules
}

// checkRules returns the first rule that rejects the item. Excludes are
// checked before includes within a rule.
func checkRules(rules []sourceRule, item NewsItem) (bool, string) {
	for _, rule := range rules {
		value := fold(fieldValue(item, rule.field))

		for _, exclude := range rule.excludes {
			if strings.Contains(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", rule.field, exclude)
			}
		}

		if len(rule.includes) == 0 {
			continue
		}
		if !containsAny(value, rule.includes) {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", rule.field, rule.includes)
		}
	}

	return false, ""
}

func containsAny(value string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func foldAll(patterns []string) []string {
	folded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = fold(strings.TrimSpace(p)); p != "" {
			folded = append(folded, p)
		}
	}
	return folded
}

func fieldValue(item NewsItem, field string) string {
	switch field {
	case "title":
		return item.Title
	case "summary":
		return item.Summary
	case "authors":
		return strings.Join(item.Authors, " ")
	case "link":
		return item.Link
	case "categories":
		return strings.Join(item.Categories, " ")
	default:
		return ""
	}
}
