// Package notify formats accepted items as bilingual messages and delivers them.
package notify

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	summaryLimit   = 150
	defaultEmoji   = "📰"
	separatorWidth = 30
)

// Message is one accepted item ready for delivery.
type Message struct {
	SourceName        string
	LocalizedSource   string
	Emoji             string
	Hashtag           string
	TitleOriginal     string
	TitleTranslated   string
	SummaryOriginal   string
	SummaryTranslated string
	Link              string
}

var DefaultHashtags = []string{"공룡뉴스", "DinosaurNews"}

// Formatter renders messages in Telegram MarkdownV2.
type Formatter struct {
	Hashtags []string
}

func NewFormatter(hashtags []string) *Formatter {
	if hashtags == nil {
		hashtags = DefaultHashtags
	}
	return &Formatter{Hashtags: hashtags}
}

// Format builds the bilingual layout: original block, separator, translated block, hashtags.
func (f *Formatter) Format(m Message) string {
	emoji := m.Emoji
	if emoji == "" {
		emoji = defaultEmoji
	}
	localized := m.LocalizedSource
	if localized == "" {
		localized = m.SourceName
	}
	titleTranslated := m.TitleTranslated
	if titleTranslated == "" {
		titleTranslated = m.TitleOriginal
	}

	var b strings.Builder

	b.WriteString(emoji + " *" + escape(m.SourceName) + "*\n\n")
	b.WriteString("*" + escape(m.TitleOriginal) + "*\n\n")
	if m.SummaryOriginal != "" {
		b.WriteString(escape(truncate(m.SummaryOriginal, summaryLimit)) + "\n\n")
	}
	if m.Link != "" {
		b.WriteString(linkMarkup(m.Link) + "\n\n")
	}

	b.WriteString(strings.Repeat("━", separatorWidth) + "\n\n")

	b.WriteString(emoji + " *" + escape(localized) + "*\n\n")
	b.WriteString("*" + escape(titleTranslated) + "*\n\n")
	if m.SummaryTranslated != "" {
		b.WriteString(escape(truncate(m.SummaryTranslated, summaryLimit)) + "\n\n")
	}

	tags := make([]string, 0, len(f.Hashtags)+1)
	tags = append(tags, hashtag(m))
	tags = append(tags, f.Hashtags...)
	for i, tag := range tags {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(`\#` + escape(tag))
	}

	return b.String()
}

func hashtag(m Message) string {
	if m.Hashtag != "" {
		return m.Hashtag
	}
	return strings.ReplaceAll(m.SourceName, " ", "")
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

func linkMarkup(link string) string {
	return "[🔗 more](" + escapeLink(link) + ")"
}

// escapeLink escapes the characters MarkdownV2 reserves inside an inline link target.
func escapeLink(link string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(link)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

var markupStripper = strings.NewReplacer(
	`\`, "", "_", "", "*", "", "[", "", "]", "", "(", "", ")", "", "~", "",
	"`", "", ">", "", "#", "", "+", "", "=", "", "|", "", "{", "", "}", "",
	".", "", "!", "", "-", "",
)

// PlainText strips MarkdownV2 markup from a formatted message. The link
// written by Format is kept verbatim.
func PlainText(formatted, link string) string {
	if link == "" {
		return markupStripper.Replace(formatted)
	}

	parts := strings.Split(formatted, linkMarkup(link))
	for i, part := range parts {
		parts[i] = markupStripper.Replace(part)
	}
	return strings.Join(parts, "🔗 "+link)
}
