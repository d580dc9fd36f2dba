package extract

import (
	"context"
	"errors"

	"github.com/brunobiangulo/rpdextract/llm"
)

var (
	// ErrEmptyText is returned when a document has no text to extract from.
	ErrEmptyText = errors.New("extract: no text content found in document")

	// ErrMalformedResponse means the completion held no decodable JSON object.
	ErrMalformedResponse = errors.New("extract: malformed completion response")
)

// IsRecoverable reports whether err from a completion call should be
// answered by falling back to pattern extraction.
func IsRecoverable(err error) bool {
	return errors.Is(err, llm.ErrUnavailable) ||
		errors.Is(err, llm.ErrRequestFailed) ||
		errors.Is(err, llm.ErrEmptyResponse) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, context.DeadlineExceeded)
}
