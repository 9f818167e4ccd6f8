package gateway

import "errors"

var (
	// ErrMalformedSubmission indicates the submission failed validation
	// before any side effect took place.
	ErrMalformedSubmission = errors.New("malformed submission")

	// ErrSubmissionFailed indicates persistence failed after retries were
	// exhausted. No partial state is visible; the submission may be
	// retried later.
	ErrSubmissionFailed = errors.New("submission failed")
)
