package analyzer

import (
	"net/http"
	"time"
)

// URL is a submitted site reduced to scheme and authority.
type URL struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Check is one fetch-and-record attempt against a stored URL. StatusCode
// mirrors the nullable column; checks written by this service always set it.
type Check struct {
	ID          int64     `json:"id"`
	URLID       int64     `json:"url_id"`
	StatusCode  *int      `json:"status_code"`
	H1          string    `json:"h1"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// URLSummary is a listing row: a URL joined with its most recent check.
// LastCheckedAt and LastStatusCode are nil when the URL was never checked.
type URLSummary struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
	LastStatusCode *int       `json:"last_status_code,omitempty"`
}

// FetchResult is what a Fetcher returns for a completed HTTP exchange,
// whatever its status code. URL is the final URL after redirects.
type FetchResult struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// PageMeta is the best-effort metadata pulled from an HTML document.
type PageMeta struct {
	Title       string
	Description string
	H1          string
}
