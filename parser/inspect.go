package parser

import "strings"

// StructureReport summarises what a parse produced without running any
// extraction.
type StructureReport struct {
	FileType      string    `json:"file_type"`
	Method        string    `json:"method"`
	Parseable     bool      `json:"parseable"`
	ContentLength int       `json:"content_length"`
	HasContent    bool      `json:"has_content"`
	Structure     Structure `json:"structure"`
}

// Structure holds the format-specific counts. Fields that do not apply to
// a format are left zero and omitted from JSON.
type Structure struct {
	Pages       int      `json:"pages,omitempty"`
	Paragraphs  int      `json:"paragraphs,omitempty"`
	Tables      int      `json:"tables,omitempty"`
	Sheets      int      `json:"sheets,omitempty"`
	SheetNames  []string `json:"sheet_names,omitempty"`
	HasMetadata bool     `json:"has_metadata"`
}

// Inspect builds a StructureReport for a parsed document. Content length is
// counted in characters.
func Inspect(doc *Document) StructureReport {
	r := StructureReport{
		FileType:      doc.FileType,
		Method:        doc.Method,
		Parseable:     true,
		ContentLength: len([]rune(doc.RawText)),
		HasContent:    strings.TrimSpace(doc.RawText) != "",
	}
	r.Structure.HasMetadata = len(doc.Metadata) > 0

	switch doc.FileType {
	case "pdf":
		r.Structure.Pages = doc.Pages
	case "docx", "doc":
		r.Structure.Paragraphs = len(doc.Paragraphs)
		r.Structure.Tables = len(doc.Tables)
	case "xlsx", "xls":
		r.Structure.Sheets = len(doc.Sheets)
		for _, s := range doc.Sheets {
			r.Structure.SheetNames = append(r.Structure.SheetNames, s.Name)
		}
	}
	return r
}
