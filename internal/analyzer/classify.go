package analyzer

// Outcome is the classification of a fetched status code.
type Outcome int

// Check outcomes.
const (
	// OutcomeOK covers 2xx and 3xx: the check is recorded.
	OutcomeOK Outcome = iota
	// OutcomeClientError covers 4xx: the check is recorded without metadata.
	OutcomeClientError
	// OutcomeFailed covers 5xx and anything unexpected: nothing is recorded.
	OutcomeFailed
)

// Classify maps an HTTP status code to a check outcome.
func Classify(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return OutcomeOK
	case statusCode >= 400 && statusCode < 500:
		return OutcomeClientError
	default:
		return OutcomeFailed
	}
}

// Recorded reports whether a check with this outcome is persisted.
func (o Outcome) Recorded() bool {
	return o == OutcomeOK || o == OutcomeClientError
}

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeClientError:
		return "client_error"
	default:
		return "failed"
	}
}
