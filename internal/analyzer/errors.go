package analyzer

import "errors"

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateURL is returned by URLRepository.Create when the name is taken.
	ErrDuplicateURL = errors.New("url already exists")
	// ErrCheckFailed wraps fetch failures that must not produce a check row.
	ErrCheckFailed = errors.New("check failed")

	// ErrURLRequired is returned for blank input.
	ErrURLRequired = errors.New("URL is required")
	// ErrURLTooLong is returned when input exceeds MaxURLLength.
	ErrURLTooLong = errors.New("URL exceeds 255 characters")
	// ErrInvalidURL is returned for anything that is not an absolute http(s) URL
	// with a public host.
	ErrInvalidURL = errors.New("Invalid URL") //nolint:revive,stylecheck // shown to users verbatim
)

// IsValidationError reports whether err came from NormalizeURL.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrURLRequired) ||
		errors.Is(err, ErrURLTooLong) ||
		errors.Is(err, ErrInvalidURL)
}
