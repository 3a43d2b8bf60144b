package api

import "github.com/JakeFAU/page-analyzer/internal/analyzer"

// Flash categories double as Bootstrap alert classes.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashDanger  = "danger"
)

// User-facing flash messages.
const (
	msgURLExists   = "Page already exists"
	msgURLAdded    = "Page successfully added"
	msgChecked     = "Page successfully checked"
	msgCheckFailed = "An error occurred during the check"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// Page carries the fields every template's layout reads.
type Page struct {
	Title   string
	Flashes []Flash
}

// IndexView backs the submission form. URL and Error are set when a
// submission is rejected.
type IndexView struct {
	Page
	URL   string
	Error string
}

// URLsView backs the site listing.
type URLsView struct {
	Page
	URLs []analyzer.URLSummary
}

// URLView backs a single site with its checks, newest first.
type URLView struct {
	Page
	URL    analyzer.URL
	Checks []analyzer.Check
}

// ErrorView backs the 404 and 500 pages. RequestID lets a user quote the
// failing request when reporting it.
type ErrorView struct {
	Page
	Status    int
	Message   string
	RequestID string
}
