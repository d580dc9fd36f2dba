package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
)

type LlamaParseConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// Registry maps formats to parsers.
type Registry struct {
	parsers    map[string]Parser
	llamaParse *LlamaParseConfig
}

// NewRegistry returns a registry with the built-in parsers. Legacy formats
// are registered but fail with ErrExternalParserRequired until LlamaParse is
// configured.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{&PDFParser{}, &DOCXParser{}, &XLSXParser{}, &TextParser{}, &LegacyParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// SetLlamaParse routes legacy formats to LlamaParse.
func (r *Registry) SetLlamaParse(cfg LlamaParseConfig) {
	r.llamaParse = &cfg
	lp := NewLlamaParseParser(cfg)
	for _, f := range legacyFormats {
		r.parsers[f] = lp
	}
}

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for format: %s", ErrUnsupportedFormat, format)
	}
	return p, nil
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Parse detects the format of path and runs the matching parser. Parser
// failures are wrapped with ErrParsingFailed unless they already carry one
// of the package's sentinel errors.
func (r *Registry) Parse(ctx context.Context, path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	format := DetectFormat(path)
	p, err := r.Get(format)
	if err != nil {
		return nil, err
	}

	doc, err := p.Parse(ctx, path)
	if err != nil {
		if errors.Is(err, ErrExternalParserRequired) || errors.Is(err, ErrParsingFailed) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrParsingFailed, format, err)
	}
	if doc.FileType == "" {
		doc.FileType = format
	}
	doc.FilePath = path
	return doc, nil
}
