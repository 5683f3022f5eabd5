// Package extract pulls the title, text, and outbound links out of HTML.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitesoft/internal/crawler"
)

// Extractor implements crawler.Extractor with goquery.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses body. Title and Content are MissingValue when the <title>
// or <html> element is absent. Links keep their document order, are deduplicated, and
// include only absolute crawlable URLs; relative hrefs are dropped.
func (e *Extractor) Extract(body []byte) (crawler.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse html: %w", err)
	}

	// An absent element is recorded as MissingValue; a present but empty
	// one stays empty.
	ext := crawler.Extraction{Title: crawler.MissingValue, Content: crawler.MissingValue}
	if title := doc.Find("title").First(); title.Length() > 0 {
		ext.Title = title.Text()
	}
	if root := doc.Find("html").First(); root.Length() > 0 {
		ext.Content = root.Text()
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !crawler.IsCrawlable(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		ext.Links = append(ext.Links, href)
	})
	return ext, nil
}
