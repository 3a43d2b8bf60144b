package analyzer

import (
	"context"
	"time"
)

// URLRepository persists submitted URLs.
type URLRepository interface {
	Create(ctx context.Context, name string, createdAt time.Time) (URL, error)
	FindByID(ctx context.Context, id int64) (URL, error)
	FindByName(ctx context.Context, name string) (URL, error)
	ListSummaries(ctx context.Context) ([]URLSummary, error)
}

// CheckRepository persists check rows.
type CheckRepository interface {
	Create(ctx context.Context, check Check) (Check, error)
	ListByURL(ctx context.Context, urlID int64) ([]Check, error)
}

// Resetter is implemented by repositories that support administrative wipes.
type Resetter interface {
	// Clear deletes every row.
	Clear(ctx context.Context) error
	// Reset deletes every row and restarts the id sequence.
	Reset(ctx context.Context) error
}

// Fetcher retrieves a page. A non-nil error means no HTTP response was
// obtained (network failure, timeout, cancellation).
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// Extractor pulls metadata out of an HTML body. contentType is the response
// Content-Type header, used to pick a character set. It never fails.
type Extractor interface {
	Extract(body []byte, contentType string) PageMeta
}

// Limiter throttles outbound checks per host.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
