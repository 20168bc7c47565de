package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/dino-relay/app/database"
)

type GeneratorConfig struct {
	Title       string
	Link        string
	Description string
	SelfURL     string
	Language    string
	Version     string
}

// Generator renders recently delivered items as an RSS 2.0 document.
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	cfg.Title = cmp.Or(cfg.Title, "Dino Relay")
	cfg.Description = cmp.Or(cfg.Description, "Dinosaur and paleontology news relayed with translations")
	cfg.Language = cmp.Or(cfg.Language, "ko")
	return &Generator{cfg: cfg}
}

func (g *Generator) Run(deliveries []database.Delivery) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.cfg.Title, 4)
	g.writeElement(&buf, "link", cmp.Or(g.cfg.Link, g.cfg.SelfURL), 4)
	g.writeElement(&buf, "description", g.cfg.Description, 4)

	if g.cfg.SelfURL != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.cfg.SelfURL)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(deliveries) > 0 {
		lastBuildDate = deliveries[0].CreatedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Dino-Relay/%s", cmp.Or(g.cfg.Version, "dev")), 4)
	g.writeElement(&buf, "language", g.cfg.Language, 4)

	for _, d := range deliveries {
		g.writeItem(&buf, d)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, d database.Delivery) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(d.ItemID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", cmp.Or(d.TitleTranslated, d.TitleOriginal), 6)
	g.writeElement(buf, "link", d.Link, 6)

	description := cmp.Or(d.SummaryTranslated, d.SummaryOriginal)
	if d.TitleTranslated != "" && d.TitleOriginal != "" {
		description = fmt.Sprintf("%s\n\n%s", d.TitleOriginal, description)
	}
	g.writeElement(buf, "description", cmp.Or(description, "No description available"), 6)

	pubDate := d.CreatedAt
	if d.PublishedAt != nil {
		pubDate = *d.PublishedAt
	}
	g.writeElement(buf, "pubDate", pubDate.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", d.Source, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
