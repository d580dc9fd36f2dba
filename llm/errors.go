package llm

import "errors"

// Failure classes reported by every provider. Callers that can degrade
// gracefully (for example by falling back to pattern extraction) test for
// these with errors.Is.
var (
	// ErrUnavailable means the service could not be reached or kept failing
	// with transient status codes until retries ran out.
	ErrUnavailable = errors.New("llm: service unavailable")

	// ErrRequestFailed means the service answered with a non-retryable error.
	ErrRequestFailed = errors.New("llm: request failed")

	// ErrEmptyResponse means the service answered but produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)
