package rpdextract

import (
	"errors"

	"github.com/brunobiangulo/rpdextract/extract"
	"github.com/brunobiangulo/rpdextract/store"
)

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("rpdextract: invalid configuration")

	// ErrFileTooLarge is returned when a file exceeds MaxFileSizeMB.
	ErrFileTooLarge = errors.New("rpdextract: file too large")

	// ErrFormatNotAllowed is returned for formats outside AllowedFormats.
	ErrFormatNotAllowed = errors.New("rpdextract: format not allowed")

	// ErrNoTextContent is returned when a parsed document has no text.
	ErrNoTextContent = extract.ErrEmptyText

	// ErrDocumentNotFound is returned when a document id does not exist.
	ErrDocumentNotFound = store.ErrNotFound

	// ErrPersistenceDisabled is returned by store-backed operations when the
	// Processor runs without a database.
	ErrPersistenceDisabled = errors.New("rpdextract: persistence is disabled")
)
