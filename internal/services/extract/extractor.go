package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/interfaces"
)

// Service converts raw HTML into markdown plus basic metadata. The pipeline
// treats this as a black box: HTML in, (title, text, date) out.
type Service struct {
	converter *md.Converter
	logger    arbor.ILogger
}

// NewService creates a new extractor
func NewService(logger arbor.ILogger) *Service {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Service{
		converter: converter,
		logger:    logger,
	}
}

// Extract parses HTML and returns the title, markdown body and published
// date when present.
func (s *Service) Extract(html []byte, pageURL string) (*interfaces.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Strip chrome before conversion so navigation and ads don't pollute
	// the markdown body.
	doc.Find("script, style, nav, header, footer, aside, form, iframe").Remove()

	bodyHTML, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(bodyHTML) == "" {
		bodyHTML = string(html)
	}

	markdown, err := s.converter.ConvertString(bodyHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("extraction produced empty content for %s", pageURL)
	}

	return &interfaces.Extraction{
		Title:       extractTitle(doc),
		Markdown:    markdown,
		PublishedAt: extractPublishedDate(doc),
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return strings.TrimSpace(og)
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Date formats seen across article meta tags.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func extractPublishedDate(doc *goquery.Document) *time.Time {
	selectors := []string{
		`meta[property="article:published_time"]`,
		`meta[name="pubdate"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
		`time[datetime]`,
	}
	for _, sel := range selectors {
		var raw string
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if v, ok := node.Attr("content"); ok {
			raw = v
		} else if v, ok := node.Attr("datetime"); ok {
			raw = v
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t
			}
		}
	}
	return nil
}
