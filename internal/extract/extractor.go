// Package extract pulls page metadata out of HTML with goquery.
package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
)

const h1Separator = ", "

// Extractor implements analyzer.Extractor. The zero value is ready to use.
type Extractor struct{}

var _ analyzer.Extractor = Extractor{}

// New returns an Extractor.
func New() Extractor {
	return Extractor{}
}

// Extract returns the first head title, the meta description and every
// non-empty body h1 joined with ", ". Anything missing or unparsable is "".
// Bodies that are not UTF-8 are decoded using contentType, a BOM or a
// <meta charset> declaration, falling back to windows-1252.
func (Extractor) Extract(body []byte, contentType string) analyzer.PageMeta {
	doc, err := goquery.NewDocumentFromReader(decode(body, contentType))
	if err != nil {
		return analyzer.PageMeta{}
	}
	return analyzer.PageMeta{
		Title:       strings.TrimSpace(doc.Find("head title").First().Text()),
		Description: description(doc),
		H1:          headings(doc),
	}
}

func description(doc *goquery.Document) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ = s.Attr("content")
		return false
	})
	return strings.TrimSpace(content)
}

func headings(doc *goquery.Document) string {
	var parts []string
	doc.Find("body h1").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, h1Separator)
}

// decode leaves UTF-8 input alone; the fetcher has already transcoded bodies
// whose Content-Type names a charset.
func decode(body []byte, contentType string) io.Reader {
	if utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}
