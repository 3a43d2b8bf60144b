// Package analyzer holds the page-analyzer domain: stored URLs, their checks,
// the URL normalizer, and the check pipeline that fetches a page, classifies
// the response, and records extracted metadata.
package analyzer
