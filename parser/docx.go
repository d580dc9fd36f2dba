package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	data, err := readZipEntry(fileIndex, "word/document.xml")
	if err != nil {
		return nil, err
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	out := &Document{
		FileType: "docx",
		Method:   "native",
		Metadata: docxCoreProperties(fileIndex),
	}

	var text []string
	for i, para := range doc.Body.Paras {
		t := strings.TrimSpace(extractParaText(para))
		if t == "" {
			continue
		}
		style := "Normal"
		if para.PPr != nil && para.PPr.PStyle != nil && para.PPr.PStyle.Val != "" {
			style = para.PPr.PStyle.Val
		}
		out.Paragraphs = append(out.Paragraphs, Paragraph{Index: i, Text: t, Style: style})
		text = append(text, t)
	}

	for i, tbl := range doc.Body.Tables {
		table := Table{Index: i}
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				parts := make([]string, 0, len(cell.Paras))
				for _, p := range cell.Paras {
					if t := strings.TrimSpace(extractParaText(p)); t != "" {
						parts = append(parts, t)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			table.Rows = append(table.Rows, cells)
			if line := strings.TrimSpace(strings.Join(cells, " | ")); strings.Trim(line, "| ") != "" {
				text = append(text, line)
			}
		}
		out.Tables = append(out.Tables, table)
	}

	out.RawText = strings.Join(text, "\n")
	return out, nil
}

func readZipEntry(fileIndex map[string]*zip.File, name string) ([]byte, error) {
	zf := fileIndex[name]
	if zf == nil {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// docxCoreProperties reads docProps/core.xml. Missing or unreadable
// properties yield nil.
func docxCoreProperties(fileIndex map[string]*zip.File) map[string]string {
	data, err := readZipEntry(fileIndex, "docProps/core.xml")
	if err != nil {
		return nil
	}
	var props docxCoreProps
	if err := xml.Unmarshal(data, &props); err != nil {
		return nil
	}
	meta := make(map[string]string)
	for k, v := range map[string]string{
		"title":    props.Title,
		"author":   props.Creator,
		"subject":  props.Subject,
		"created":  props.Created,
		"modified": props.Modified,
	} {
		if v = strings.TrimSpace(v); v != "" {
			meta[k] = v
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

type docxCoreProps struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

// DOCX XML structures (simplified)
type docxBody struct {
	XMLName xml.Name    `xml:"body"`
	Paras   []docxPara  `xml:"p"`
	Tables  []docxTable `xml:"tbl"`
}

type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxPara struct {
	XMLName xml.Name    `xml:"p"`
	PPr     *docxParaPr `xml:"pPr"`
	Runs    []docxRun   `xml:"r"`
}

type docxParaPr struct {
	PStyle *docxPStyle `xml:"pStyle"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

func extractParaText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}
