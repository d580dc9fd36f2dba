package parser

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInParsers(t *testing.T) {
	reg := NewRegistry()

	formats := []struct {
		format     string
		wantParser string
	}{
		{"pdf", "*parser.PDFParser"},
		{"docx", "*parser.DOCXParser"},
		{"xlsx", "*parser.XLSXParser"},
		{"txt", "*parser.TextParser"},
		{"doc", "*parser.LegacyParser"},
		{"xls", "*parser.LegacyParser"},
	}

	for _, tt := range formats {
		t.Run(tt.format, func(t *testing.T) {
			p, err := reg.Get(tt.format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", tt.format, err)
			}
			found := false
			for _, f := range p.SupportedFormats() {
				if f == tt.format {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("parser for %q does not list %q in SupportedFormats(): %v",
					tt.format, tt.format, p.SupportedFormats())
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()

	for _, format := range []string{"csv", "json", "html", "rtf", "odt", "pptx", ""} {
		t.Run("format_"+format, func(t *testing.T) {
			p, err := reg.Get(format)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Get(%q) err = %v, want ErrUnsupportedFormat", format, err)
			}
			if p != nil {
				t.Errorf("Get(%q) expected nil parser for unknown format", format)
			}
		})
	}
}

func TestRegistryLlamaParseTakesLegacyFormats(t *testing.T) {
	reg := NewRegistry()
	reg.SetLlamaParse(LlamaParseConfig{APIKey: "k"})
	for _, f := range []string{"doc", "xls"} {
		p, err := reg.Get(f)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.(*LlamaParseParser); !ok {
			t.Errorf("%s parser = %T, want *LlamaParseParser", f, p)
		}
	}
	if p, _ := reg.Get("pdf"); p == nil {
		t.Error("pdf parser lost")
	} else if _, ok := p.(*PDFParser); !ok {
		t.Errorf("pdf parser = %T", p)
	}
}

func TestRegistryParseErrors(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	ctx := context.Background()

	_, err := reg.Parse(ctx, filepath.Join(dir, "missing.pdf"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file err = %v", err)
	}

	odd := writeFile(t, dir, "notes.odt", "text")
	if _, err := reg.Parse(ctx, odd); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("odt err = %v", err)
	}

	legacy := writeFile(t, dir, "old.doc", "binary")
	if _, err := reg.Parse(ctx, legacy); !errors.Is(err, ErrExternalParserRequired) {
		t.Errorf("doc err = %v", err)
	}

	broken := writeFile(t, dir, "broken.docx", "not a zip")
	if _, err := reg.Parse(ctx, broken); !errors.Is(err, ErrParsingFailed) {
		t.Errorf("broken docx err = %v", err)
	}

	brokenPDF := writeFile(t, dir, "broken.pdf", "not a pdf")
	if _, err := reg.Parse(ctx, brokenPDF); !errors.Is(err, ErrParsingFailed) {
		t.Errorf("broken pdf err = %v", err)
	}
}

func TestRegistryFormats(t *testing.T) {
	got := strings.Join(NewRegistry().Formats(), ",")
	if got != "doc,docx,pdf,txt,xls,xlsx" {
		t.Errorf("Formats = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Format detection
// ---------------------------------------------------------------------------

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()

	docx := writeDOCX(t, dir, "noext", docxBodyXML("<w:p><w:r><w:t>x</w:t></w:r></w:p>"), "")
	xlsxPath := filepath.Join(dir, "sheet")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "x")
	if err := f.SaveAs(xlsxPath + ".xlsx"); err != nil {
		t.Fatal(err)
	}
	f.Close()
	os.Rename(xlsxPath+".xlsx", xlsxPath)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"pdf extension", filepath.Join(dir, "a.PDF"), "pdf"},
		{"docx extension", filepath.Join(dir, "a.docx"), "docx"},
		{"legacy word", filepath.Join(dir, "a.doc"), "doc"},
		{"legacy excel", filepath.Join(dir, "a.xls"), "xls"},
		{"text", filepath.Join(dir, "a.txt"), "txt"},
		{"pdf magic", writeFile(t, dir, "blob1", "%PDF-1.7\n..."), "pdf"},
		{"ole2 magic", writeFile(t, dir, "blob2", "\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1rest"), "doc"},
		{"docx sniffed", docx, "docx"},
		{"xlsx sniffed", xlsxPath, "xlsx"},
		{"unknown content", writeFile(t, dir, "blob3", "hello"), "unknown"},
		{"missing file", filepath.Join(dir, "nope"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.path); got != tt.want {
				t.Errorf("DetectFormat(%s) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Format parsers
// ---------------------------------------------------------------------------

func TestDOCXParser(t *testing.T) {
	dir := t.TempDir()
	body := docxBodyXML(`
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Рабочая программа</w:t></w:r></w:p>
<w:p><w:r><w:t>Дисциплина: </w:t></w:r><w:r><w:t>Физика</w:t></w:r></w:p>
<w:p><w:r><w:t>   </w:t></w:r></w:p>
<w:tbl>
  <w:tr><w:tc><w:p><w:r><w:t>Тема</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Часы</w:t></w:r></w:p></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>Механика</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>4</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>`)
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>РПД Физика</dc:title><dc:creator>Кафедра</dc:creator>
</cp:coreProperties>`
	path := writeDOCX(t, dir, "rpd.docx", body, core)

	doc, err := NewRegistry().Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.FileType != "docx" || doc.FilePath != path {
		t.Errorf("FileType/FilePath = %s/%s", doc.FileType, doc.FilePath)
	}
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(doc.Paragraphs))
	}
	if doc.Paragraphs[0].Style != "Title" || doc.Paragraphs[1].Style != "Normal" {
		t.Errorf("styles = %s, %s", doc.Paragraphs[0].Style, doc.Paragraphs[1].Style)
	}
	if doc.Paragraphs[1].Text != "Дисциплина: Физика" {
		t.Errorf("paragraph text = %q", doc.Paragraphs[1].Text)
	}
	if len(doc.Tables) != 1 || len(doc.Tables[0].Rows) != 2 || doc.Tables[0].Columns() != 2 {
		t.Fatalf("tables = %+v", doc.Tables)
	}
	want := "Рабочая программа\nДисциплина: Физика\nТема | Часы\nМеханика | 4"
	if doc.RawText != want {
		t.Errorf("RawText = %q, want %q", doc.RawText, want)
	}
	if doc.Metadata["title"] != "РПД Физика" || doc.Metadata["author"] != "Кафедра" {
		t.Errorf("metadata = %v", doc.Metadata)
	}
}

func TestXLSXParser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.xlsx")

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Темы")
	f.SetSheetRow("Темы", "A1", &[]any{"Тема", "Часы"})
	f.SetSheetRow("Темы", "A2", &[]any{"Механика", 4})
	f.NewSheet("Пусто")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	doc, err := NewRegistry().Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Sheets) != 2 {
		t.Fatalf("sheets = %d, want 2", len(doc.Sheets))
	}
	s := doc.Sheets[0]
	if s.Name != "Темы" || strings.Join(s.Columns, ",") != "Тема,Часы" || len(s.Rows) != 1 {
		t.Errorf("sheet = %+v", s)
	}
	if doc.RawText != "Тема | Часы\nМеханика | 4" {
		t.Errorf("RawText = %q", doc.RawText)
	}

	rep := Inspect(doc)
	if rep.Structure.Sheets != 2 || strings.Join(rep.Structure.SheetNames, ",") != "Темы,Пусто" {
		t.Errorf("structure = %+v", rep.Structure)
	}
}

func TestTextParser(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rpd.txt", "Дисциплина: Физика\n")
	doc, err := NewRegistry().Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "Дисциплина: Физика\n" || doc.Method != "native" {
		t.Errorf("doc = %+v", doc)
	}
}

// ---------------------------------------------------------------------------
// Inspect
// ---------------------------------------------------------------------------

func TestInspect(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want StructureReport
	}{
		{
			name: "pdf",
			doc:  Document{FileType: "pdf", RawText: "абв", Pages: 3, Metadata: map[string]string{"title": "x"}},
			want: StructureReport{FileType: "pdf", Parseable: true, ContentLength: 3, HasContent: true,
				Structure: Structure{Pages: 3, HasMetadata: true}},
		},
		{
			name: "docx blank",
			doc:  Document{FileType: "docx", RawText: "  \n", Paragraphs: []Paragraph{{}}, Tables: []Table{{}, {}}},
			want: StructureReport{FileType: "docx", Parseable: true, ContentLength: 3, HasContent: false,
				Structure: Structure{Paragraphs: 1, Tables: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Inspect(&tt.doc)
			if got.FileType != tt.want.FileType || got.ContentLength != tt.want.ContentLength ||
				got.HasContent != tt.want.HasContent || !got.Parseable {
				t.Errorf("report = %+v, want %+v", got, tt.want)
			}
			gs, ws := got.Structure, tt.want.Structure
			if gs.Pages != ws.Pages || gs.Paragraphs != ws.Paragraphs || gs.Tables != ws.Tables ||
				gs.HasMetadata != ws.HasMetadata {
				t.Errorf("structure = %+v, want %+v", gs, ws)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// LlamaParse
// ---------------------------------------------------------------------------

func TestLlamaParse(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/upload":
			w.Write([]byte(`{"id":"job-1"}`))
		case r.URL.Path == "/job/job-1/result/markdown":
			if polls.Add(1) < 3 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.Write([]byte(`{"markdown":"# Дисциплина: Физика"}`))
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	defer srv.Close()

	p := NewLlamaParseParser(LlamaParseConfig{APIKey: "key", BaseURL: srv.URL})
	p.pollInterval = time.Millisecond

	path := writeFile(t, t.TempDir(), "old.doc", "binary")
	doc, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.RawText != "# Дисциплина: Физика" || doc.Method != "llamaparse" || doc.FileType != "doc" {
		t.Errorf("doc = %+v", doc)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestLlamaParseJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			w.Write([]byte(`{"id":"job-2"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewLlamaParseParser(LlamaParseConfig{APIKey: "key", BaseURL: srv.URL})
	p.pollInterval = time.Millisecond
	_, err := p.Parse(context.Background(), writeFile(t, t.TempDir(), "a.xls", "x"))
	if err == nil || !strings.Contains(err.Error(), "LlamaParse error 500") {
		t.Errorf("err = %v", err)
	}
}

func TestLlamaParseWithoutKey(t *testing.T) {
	p := NewLlamaParseParser(LlamaParseConfig{})
	if _, err := p.Parse(context.Background(), "x.doc"); !errors.Is(err, ErrExternalParserRequired) {
		t.Errorf("err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func docxBodyXML(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		inner + `</w:body></w:document>`
}

// writeDOCX builds a minimal DOCX archive. core may be empty.
func writeDOCX(t *testing.T, dir, name, documentXML, core string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{"word/document.xml": documentXML}
	if core != "" {
		entries["docProps/core.xml"] = core
	}
	for n, content := range entries {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
