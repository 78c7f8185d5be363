package discovery

import (
	"regexp"
	"strings"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// Keywords suggesting a page lists articles (crawl deeper) versus static
// asset extensions and utility paths that are never worth fetching.
var (
	indexKeywords = []string{
		"blog", "news", "article", "post", "story", "feed", "category", "archive",
	}
	assetExtensions = []string{
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
		".css", ".js", ".pdf", ".zip", ".mp4", ".mp3", ".xml",
	}

	// Date-in-path and trailing numeric IDs are strong article signals.
	datePathPattern  = regexp.MustCompile(`/20[0-9]{2}/`)
	monthPathPattern = regexp.MustCompile(`/(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)/`)
	numericIDPattern = regexp.MustCompile(`[-/]\d{4,}(\.html)?$`)
)

// classifyURL classifies a URL by shape alone. Pure function of the URL, so
// re-running a discovery pass over the same pages classifies identically.
func (s *Service) classifyURL(normalized string) string {
	lower := strings.ToLower(normalized)

	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return models.ClassExcluded
		}
	}
	for _, pattern := range s.config.ExcludePatterns {
		if strings.Contains(lower, pattern) {
			return models.ClassExcluded
		}
	}

	if datePathPattern.MatchString(lower) || monthPathPattern.MatchString(lower) ||
		numericIDPattern.MatchString(lower) {
		return models.ClassContent
	}

	for _, kw := range indexKeywords {
		if strings.Contains(lower, "/"+kw) {
			return models.ClassNavigation
		}
	}

	// Unknown shapes are treated as navigation: worth one hop deeper but
	// not worth materializing as documents on shape alone.
	return models.ClassNavigation
}

// classifyPage classifies a fetched page by its outbound-link density.
// Pages above the threshold are link farms (navigation); pages below it are
// candidate content.
func (s *Service) classifyPage(normalized string, outboundLinks int) string {
	if s.classifyURL(normalized) == models.ClassExcluded {
		return models.ClassExcluded
	}
	if outboundLinks > s.config.NavLinkThreshold {
		return models.ClassNavigation
	}
	return models.ClassContent
}
