package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/rpdextract/llm"
	"github.com/brunobiangulo/rpdextract/parser"
)

// DefaultConcurrency is the number of field groups extracted at once.
const DefaultConcurrency = 4

// completionTemperature keeps completions close to deterministic.
const completionTemperature = 0.1

// Extractor turns document text into a validated Result. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	completer   llm.Completer
	concurrency int
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConcurrency bounds how many field groups run at once. Use 1 for
// backends that serve a single request at a time.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger used for fallback notices.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor. A nil completer selects pattern
// extraction for every group.
func NewExtractor(completer llm.Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer:   completer,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// groupOutput is what one field group contributes to the result.
type groupOutput struct {
	basic    BasicInfo
	themes   []LectureTheme
	labs     []LabExample
	refs     []LiteratureReference
	problems []string
	source   string // "llm" or "fallback"
}

type fieldGroup struct {
	name      string
	template  string
	budget    int // characters of document text in the prompt
	maxTokens int
	decode    func(obj map[string]any) groupOutput
	fallback  func(text string) groupOutput
}

var fieldGroups = []fieldGroup{
	{
		name:      "basic_info",
		template:  basicInfoPrompt,
		budget:    3000,
		maxTokens: 500,
		decode: func(obj map[string]any) groupOutput {
			info, problems := decodeBasicInfo(obj)
			return groupOutput{basic: info, problems: problems}
		},
		fallback: func(text string) groupOutput {
			return groupOutput{basic: FallbackBasicInfo(text)}
		},
	},
	{
		name:      "lecture_themes",
		template:  lectureThemesPrompt,
		budget:    4000,
		maxTokens: 1000,
		decode: func(obj map[string]any) groupOutput {
			themes, problems := decodeList("lecture theme", obj["lecture_themes"], themeItemSchema, buildLectureTheme)
			return groupOutput{themes: themes, problems: problems}
		},
		fallback: func(text string) groupOutput {
			return groupOutput{themes: FallbackLectureThemes(text)}
		},
	},
	{
		name:      "lab_examples",
		template:  labExamplesPrompt,
		budget:    4000,
		maxTokens: 1000,
		decode: func(obj map[string]any) groupOutput {
			labs, problems := decodeList("lab example", obj["lab_examples"], labItemSchema, buildLabExample)
			return groupOutput{labs: labs, problems: problems}
		},
		fallback: func(text string) groupOutput {
			return groupOutput{labs: FallbackLabExamples(text)}
		},
	},
	{
		name:      "literature",
		template:  literaturePrompt,
		budget:    4000,
		maxTokens: 1500,
		decode: func(obj map[string]any) groupOutput {
			refs, problems := decodeList("literature reference", obj["literature_references"], literatureItemSchema, buildLiteratureReference)
			return groupOutput{refs: refs, problems: problems}
		},
		fallback: func(text string) groupOutput {
			return groupOutput{refs: FallbackLiterature(text)}
		},
	},
}

// Extract runs extraction on a parsed document.
func (e *Extractor) Extract(ctx context.Context, doc *parser.Document) (*Result, error) {
	if doc == nil {
		return nil, ErrEmptyText
	}
	return e.ExtractText(ctx, doc.RawText)
}

// ExtractText extracts every field group from text, merges the groups and
// validates the result. Completion failures fall back to pattern extraction
// per group; only empty text and non-recoverable errors (such as a
// cancelled context) are returned.
func (e *Extractor) ExtractText(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	outputs := make([]groupOutput, len(fieldGroups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, fg := range fieldGroups {
		g.Go(func() error {
			out, err := e.runGroup(gctx, fg, text)
			if err != nil {
				return fmt.Errorf("extracting %s: %w", fg.name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := NewResult()
	sources := make([]any, 0, 2*len(fieldGroups))
	for i, out := range outputs {
		out.basic.apply(r)
		if out.themes != nil {
			r.LectureThemes = out.themes
		}
		if out.labs != nil {
			r.LabExamples = out.labs
		}
		if out.refs != nil {
			r.LiteratureReferences = out.refs
		}
		r.ExtractionErrors = append(r.ExtractionErrors, out.problems...)
		sources = append(sources, fieldGroups[i].name, out.source)
	}

	Validate(r)

	e.logger.Info("extract: completed",
		append(sources,
			"themes", len(r.LectureThemes),
			"labs", len(r.LabExamples),
			"literature", len(r.LiteratureReferences),
			"confidence", *r.ExtractionConfidence,
			"elapsed", time.Since(start),
		)...,
	)
	return r, nil
}

func (e *Extractor) runGroup(ctx context.Context, fg fieldGroup, text string) (groupOutput, error) {
	if e.completer == nil {
		out := fg.fallback(text)
		out.source = "fallback"
		return out, nil
	}

	obj, err := e.complete(ctx, fg, text)
	if err != nil {
		if !IsRecoverable(err) {
			return groupOutput{}, err
		}
		e.logger.Warn("extract: completion failed, using pattern fallback",
			"group", fg.name,
			"error", err,
		)
		out := fg.fallback(text)
		out.source = "fallback"
		return out, nil
	}

	out := fg.decode(obj)
	out.source = "llm"
	return out, nil
}

func (e *Extractor) complete(ctx context.Context, fg fieldGroup, text string) (map[string]any, error) {
	prompt := renderPrompt(fg.template, text, fg.budget)
	comp, err := e.completer.Complete(ctx, prompt, llm.GenerateOptions{
		Temperature: completionTemperature,
		MaxTokens:   fg.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	obj := ParseResponse(comp.Text)
	if obj == nil {
		return nil, ErrMalformedResponse
	}
	return obj, nil
}
