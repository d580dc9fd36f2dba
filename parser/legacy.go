package parser

import "context"

var legacyFormats = []string{"doc", "xls"}

// LegacyParser stands in for binary Office formats until an external
// parser is configured.
type LegacyParser struct{}

func (p *LegacyParser) SupportedFormats() []string { return legacyFormats }

func (p *LegacyParser) Parse(ctx context.Context, path string) (*Document, error) {
	return nil, ErrExternalParserRequired
}
