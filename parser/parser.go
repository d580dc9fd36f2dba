// Package parser turns curriculum documents (PDF, DOCX, XLSX, plain text and,
// through an external service, legacy DOC/XLS) into a normalised Document.
package parser

import (
	"context"
	"errors"
)

var (
	ErrFileNotFound           = errors.New("parser: file not found")
	ErrUnsupportedFormat      = errors.New("parser: unsupported format")
	ErrParsingFailed          = errors.New("parser: parsing failed")
	ErrExternalParserRequired = errors.New("parser: legacy format requires external parser (LlamaParse); configure llamaparse in config")
)

// Document is the normalised result of parsing one file. RawText is the
// concatenated text used for extraction; the remaining fields describe the
// structure the format exposes.
type Document struct {
	FileType   string            `json:"file_type"`
	FilePath   string            `json:"file_path"`
	RawText    string            `json:"raw_text"`
	Method     string            `json:"method"` // "native", "llamaparse"
	Metadata   map[string]string `json:"metadata,omitempty"`
	Pages      int               `json:"pages,omitempty"`
	Paragraphs []Paragraph       `json:"paragraphs,omitempty"`
	Tables     []Table           `json:"tables,omitempty"`
	Sheets     []Sheet           `json:"sheets,omitempty"`
}

// Paragraph is a non-empty paragraph of a word-processing document.
type Paragraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Style string `json:"style"`
}

// Table holds the cell text of one table, row by row.
type Table struct {
	Index int        `json:"index"`
	Rows  [][]string `json:"rows"`
}

// Columns returns the width of the first row.
func (t Table) Columns() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Sheet is one worksheet of a spreadsheet.
type Sheet struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*Document, error)
	SupportedFormats() []string
}
