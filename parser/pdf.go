package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("parser: failed to extract page text", "path", path, "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, text)
	}

	return &Document{
		FileType: "pdf",
		RawText:  strings.Join(pages, "\n"),
		Method:   "native",
		Metadata: pdfMetadata(reader),
		Pages:    totalPages,
	}, nil
}

var pdfInfoKeys = map[string]string{
	"Title":        "title",
	"Author":       "author",
	"Subject":      "subject",
	"Creator":      "creator",
	"CreationDate": "creation_date",
}

// pdfMetadata reads the document information dictionary. It returns nil
// when the file has none.
func pdfMetadata(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	meta := make(map[string]string)
	for key, name := range pdfInfoKeys {
		if v := info.Key(key); !v.IsNull() {
			if s := strings.TrimSpace(v.Text()); s != "" {
				meta[name] = s
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
