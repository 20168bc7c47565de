package classify

import (
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/unicode/norm"
)

// keywordSet matches a fixed list of keywords against normalized text in a
// single pass. Each distinct keyword is reported at most once per text.
type keywordSet struct {
	matcher  *ahocorasick.Matcher
	keywords []string
}

func newKeywordSet(keywords []string) *keywordSet {
	seen := make(map[string]bool, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(normalizeText(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		normalized = append(normalized, kw)
	}

	set := &keywordSet{keywords: normalized}
	if len(normalized) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return set
}

// Match returns the keywords found in text, which must already be normalized.
// Safe for concurrent use.
func (s *keywordSet) Match(text string) []string {
	if s.matcher == nil || text == "" {
		return nil
	}

	hits := s.matcher.MatchThreadSafe([]byte(text))
	matched := make([]string, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, idx := range hits {
		if idx >= len(s.keywords) || seen[idx] {
			continue
		}
		seen[idx] = true
		matched = append(matched, s.keywords[idx])
	}
	return matched
}

func (s *keywordSet) Any(text string) bool {
	return len(s.Match(text)) > 0
}

// normalizeText folds text into the form keywords are matched against:
// NFKC, lower case, and every non-alphanumeric rune replaced by a space.
func normalizeText(text string) string {
	text = strings.ToLower(norm.NFKC.String(text))

	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		} else {
			result.WriteByte(' ')
		}
	}
	return result.String()
}

func combinedText(title, summary string) string {
	return normalizeText(title + " " + summary)
}
