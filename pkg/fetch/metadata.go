package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"webfetch/pkg/models"
)

// Sentinel values used when a page is missing the corresponding element.
const (
	noTitle       = "No title found."
	noDescription = "No description found."
	noLanguage    = "No language found."
)

// extractMetadata pulls the page title, meta description, and document
// language out of a parsed page, falling back to "not found" sentinels.
func extractMetadata(doc *goquery.Document, source string) models.PageMetadata {
	meta := models.PageMetadata{
		Source:      source,
		Title:       noTitle,
		Description: noDescription,
		Language:    noLanguage,
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta.Title = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		meta.Description = desc
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Language = lang
	}

	return meta
}

// extractText returns the page's visible text: body text with script, style,
// and noscript contents stripped.
func extractText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, noscript").Remove()

	body := clone.Find("body")
	if body.Length() > 0 {
		return strings.TrimSpace(body.Text())
	}
	return strings.TrimSpace(clone.Text())
}
