package parser

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var extensionFormats = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".doc":  "doc",
	".xlsx": "xlsx",
	".xls":  "xls",
	".txt":  "txt",
}

var (
	pdfMagic  = []byte("%PDF")
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat returns the format of path by extension, falling back to
// content sniffing. It returns "unknown" when neither gives an answer.
func DetectFormat(path string) string {
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return sniffFormat(path)
}

func sniffFormat(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return "pdf"
	case bytes.HasPrefix(head, ole2Magic):
		// Word and Excel share the container; Word is the common case for
		// curriculum documents.
		return "doc"
	case bytes.HasPrefix(head, zipMagic):
		return sniffOOXML(path)
	}
	return "unknown"
}

func sniffOOXML(path string) string {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "unknown"
	}
	defer r.Close()
	for _, f := range r.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return "docx"
		case strings.HasPrefix(f.Name, "xl/"):
			return "xlsx"
		}
	}
	return "unknown"
}
