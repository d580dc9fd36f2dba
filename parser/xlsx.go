package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	doc := &Document{FileType: "xlsx", Method: "native"}
	var blocks []string

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			slog.Warn("parser: failed to read sheet", "path", path, "sheet", name, "error", err)
			continue
		}

		sheet := Sheet{Name: name}
		if len(rows) > 0 {
			sheet.Columns = rows[0]
			sheet.Rows = rows[1:]
		}
		doc.Sheets = append(doc.Sheets, sheet)

		var content strings.Builder
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if strings.Trim(line, "| ") == "" {
				continue
			}
			content.WriteString(line)
			content.WriteString("\n")
		}
		if content.Len() > 0 {
			blocks = append(blocks, strings.TrimRight(content.String(), "\n"))
		}
	}

	doc.RawText = strings.Join(blocks, "\n\n")
	return doc, nil
}
