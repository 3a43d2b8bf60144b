// Package web renders the HTML pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	PageIndex = "index"
	PageURLs  = "urls"
	PageURL   = "url"
	PageError = "error"
)

const dateLayout = "2006-01-02"

// Renderer executes one pre-parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"formatDate":    formatDate,
		"formatDatePtr": formatDatePtr,
		"derefInt":      derefInt,
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PageURLs, PageURL, PageError} {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes page with the given status. The page is executed into a
// buffer first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", page, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func derefInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
