// Package rpdextract turns curriculum documents (RPD) into structured
// records: it parses the file, extracts fields with a text completion
// service or pattern heuristics, validates and scores the result, and
// optionally persists it.
package rpdextract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/rpdextract/cache"
	"github.com/brunobiangulo/rpdextract/extract"
	"github.com/brunobiangulo/rpdextract/llm"
	"github.com/brunobiangulo/rpdextract/parser"
	"github.com/brunobiangulo/rpdextract/store"
)

// Processor is the main entry point for document processing.
type Processor interface {
	// ProcessFile parses, extracts, validates and scores one file. Failures
	// are recorded in the result's Errors; the result is never nil.
	ProcessFile(ctx context.Context, path string) *ProcessResult

	// ProcessFiles processes files independently with bounded concurrency.
	// Results are in input order.
	ProcessFiles(ctx context.Context, paths []string) []*ProcessResult

	// ValidateStructure parses a file and reports its structure without
	// extracting anything.
	ValidateStructure(ctx context.Context, path string) (*parser.StructureReport, error)

	// SupportedFormats lists the accepted file extensions.
	SupportedFormats() []Format

	// Stats reports processing history and cache usage.
	Stats(ctx context.Context) (*Stats, error)

	// Document returns a stored extraction by id.
	Document(ctx context.Context, id string) (*store.Extraction, error)

	// Close releases the database.
	Close() error
}

// ProcessResult is the outcome of processing one file.
type ProcessResult struct {
	FilePath   string   `json:"file_path"`
	DocumentID string   `json:"document_id,omitempty"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`

	Parsed    *parser.StructureReport `json:"parsed_data,omitempty"`
	Extracted map[string]any          `json:"extracted_data,omitempty"`

	ExtractionConfidence float64 `json:"extraction_confidence"`
	CompletenessScore    float64 `json:"completeness_score"`
	NeedsReview          bool    `json:"needs_review"`

	ProcessingStart       time.Time `json:"processing_start"`
	ProcessingEnd         time.Time `json:"processing_end"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`

	// Result is the typed extraction behind Extracted.
	Result *extract.Result `json:"-"`
}

// Format is an accepted file extension.
type Format struct {
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

// PerformanceTargets are the per-file latency goals in seconds.
type PerformanceTargets struct {
	ParsingSeconds    float64 `json:"parsing"`
	ExtractionSeconds float64 `json:"extraction"`
	TotalSeconds      float64 `json:"total"`
}

// Stats describes the processor and its history.
type Stats struct {
	Provider           string             `json:"provider"`
	Model              string             `json:"model,omitempty"`
	SupportedFormats   []string           `json:"supported_formats"`
	Store              *store.Stats       `json:"store,omitempty"`
	Cache              *cache.MemoryStats `json:"cache,omitempty"`
	PerformanceTargets PerformanceTargets `json:"performance_targets"`
}

var defaultTargets = PerformanceTargets{ParsingSeconds: 5, ExtractionSeconds: 15, TotalSeconds: 20}

var formatDescriptions = map[string]string{
	"pdf":  "PDF documents",
	"docx": "Microsoft Word documents (2007+)",
	"doc":  "Microsoft Word documents (legacy)",
	"xlsx": "Microsoft Excel spreadsheets (2007+)",
	"xls":  "Microsoft Excel spreadsheets (legacy)",
	"txt":  "Plain text files",
}

// Option configures a Processor.
type Option func(*processor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCompleter replaces the completion service built from Config.LLM.
func WithCompleter(c llm.Completer) Option {
	return func(p *processor) { p.completer = c }
}

// processor is the concrete implementation of Processor.
type processor struct {
	cfg       Config
	logger    *slog.Logger
	store     *store.Store
	memory    *cache.Memory
	cache     cache.Cache
	completer llm.Completer
	model     string
	parsers   *parser.Registry
	extractor *extract.Extractor
	allowed   []string
	maxBytes  int64
	cacheTTL  time.Duration
}

// New creates a Processor from cfg.
func New(cfg Config, opts ...Option) (Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &processor{
		cfg:      cfg,
		logger:   slog.Default(),
		maxBytes: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		cacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	}
	for _, f := range cfg.AllowedFormats {
		p.allowed = append(p.allowed, normalizeFormat(f))
	}

	if cfg.LLM.Provider != ProviderNone {
		provider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		p.completer = provider
		p.model = provider.Model()
	}
	for _, opt := range opts {
		opt(p)
	}

	if dbPath := cfg.resolveDBPath(); dbPath != "" {
		s, err := store.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		p.store = s
	}

	if cfg.Cache.Enabled {
		p.memory = cache.NewMemory(cfg.Cache.MaxEntries)
		p.cache = p.memory
		if cfg.Cache.Persistent && p.store != nil {
			if n, err := p.store.PurgeExpired(context.Background()); err != nil {
				p.logger.Warn("cache: purging expired entries failed", "error", err)
			} else if n > 0 {
				p.logger.Info("cache: purged expired entries", "count", n)
			}
			p.cache = cache.NewLayered(p.memory, p.store, p.cacheTTL)
		}
		if p.completer != nil {
			p.completer = llm.NewCachedCompleter(p.completer, p.cache, p.cacheTTL)
		}
	}

	p.parsers = parser.NewRegistry()
	if cfg.LlamaParse != nil {
		p.parsers.SetLlamaParse(*cfg.LlamaParse)
	}

	p.extractor = extract.NewExtractor(p.completer,
		extract.WithConcurrency(cfg.ExtractionConcurrency),
		extract.WithLogger(p.logger),
	)

	return p, nil
}

func (p *processor) ProcessFile(ctx context.Context, path string) *ProcessResult {
	res := &ProcessResult{
		FilePath:        path,
		Errors:          []string{},
		Warnings:        []string{},
		ProcessingStart: time.Now(),
	}
	defer func() {
		res.ProcessingEnd = time.Now()
		res.ProcessingTimeSeconds = res.ProcessingEnd.Sub(res.ProcessingStart).Seconds()
	}()

	filename := filepath.Base(path)
	fail := func(format, msg string) *ProcessResult {
		res.Errors = append(res.Errors, msg)
		p.logger.Warn("process: failed", "file", filename, "error", msg)
		p.recordFailure(ctx, filename, format, res)
		return res
	}

	format, err := p.checkFile(path)
	if err != nil {
		return fail(format, "RPD processing failed: "+err.Error())
	}

	p.logger.Info("process: parsing document", "file", filename, "format", format)
	parseStart := time.Now()
	doc, err := p.parse(ctx, path)
	if err != nil {
		return fail(format, "RPD parsing failed: "+err.Error())
	}
	report := parser.Inspect(doc)
	res.Parsed = &report
	p.logger.Info("process: parsing complete",
		"file", filename,
		"chars", report.ContentLength,
		"elapsed", time.Since(parseStart),
	)

	result, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return fail(format, "RPD processing failed: "+err.Error())
	}

	res.Result = result
	res.Extracted = extract.ToPlainRecord(result)
	if result.ExtractionConfidence != nil {
		res.ExtractionConfidence = *result.ExtractionConfidence
	}
	res.CompletenessScore = extract.Completeness(result)
	res.Warnings = append(res.Warnings, extract.CompletenessWarnings(result)...)
	for _, e := range result.ExtractionErrors {
		res.Warnings = append(res.Warnings, "Extraction error: "+e)
	}
	res.NeedsReview = res.CompletenessScore < extract.LowConfidence || res.ExtractionConfidence < extract.LowConfidence
	res.Success = true

	if p.store != nil {
		id, err := p.store.SaveExtraction(ctx, store.Record{
			FileName:       filename,
			FileType:       format,
			Result:         result,
			Completeness:   res.CompletenessScore,
			ProcessingTime: time.Since(res.ProcessingStart),
		})
		if err != nil {
			p.logger.Warn("process: saving result failed", "file", filename, "error", err)
			res.Warnings = append(res.Warnings, "Result not saved: "+err.Error())
		} else {
			res.DocumentID = id
		}
	}

	p.logger.Info("process: document ready",
		"file", filename,
		"document_id", res.DocumentID,
		"confidence", res.ExtractionConfidence,
		"completeness", res.CompletenessScore,
		"needs_review", res.NeedsReview,
		"elapsed", time.Since(res.ProcessingStart),
	)
	return res
}

func (p *processor) recordFailure(ctx context.Context, filename, format string, res *ProcessResult) {
	if p.store == nil {
		return
	}
	// Failures are recorded even when ctx was what failed the run.
	ctx = context.WithoutCancel(ctx)
	if _, err := p.store.RecordFailure(ctx, filename, format, res.Errors, time.Since(res.ProcessingStart)); err != nil {
		p.logger.Warn("process: recording failure failed", "file", filename, "error", err)
	}
}

// checkFile verifies existence, size and format, returning the format.
func (p *processor) checkFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", parser.ErrFileNotFound, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", parser.ErrFileNotFound, path)
	}
	if info.Size() > p.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d MB", ErrFileTooLarge, info.Size(), p.cfg.MaxFileSizeMB)
	}
	format := parser.DetectFormat(path)
	if !slices.Contains(p.allowed, format) {
		return format, fmt.Errorf("%w: %s", ErrFormatNotAllowed, format)
	}
	return format, nil
}

// parse runs the parser registry, consulting the cache first. Entries are
// keyed by content digest, size and detected format, so the same bytes
// uploaded to different temporary paths share one entry.
func (p *processor) parse(ctx context.Context, path string) (*parser.Document, error) {
	if p.cache == nil {
		return p.parsers.Parse(ctx, path)
	}

	key, err := contentKey(path)
	if err != nil {
		p.logger.Warn("cache: hashing input failed", "path", path, "error", err)
	}
	if key != "" {
		if data, ok, err := p.cache.Get(ctx, key); err != nil {
			p.logger.Warn("cache: parse lookup failed", "error", err)
		} else if ok {
			var doc parser.Document
			if err := json.Unmarshal(data, &doc); err == nil {
				doc.FilePath = path
				return &doc, nil
			}
		}
	}

	doc, err := p.parsers.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if data, err := json.Marshal(doc); err == nil {
			if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
				p.logger.Warn("cache: parse store failed", "error", err)
			}
		}
	}
	return doc, nil
}

func (p *processor) ProcessFiles(ctx context.Context, paths []string) []*ProcessResult {
	results := make([]*ProcessResult, len(paths))
	var g errgroup.Group
	g.SetLimit(p.cfg.BatchConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.ProcessFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *processor) ValidateStructure(ctx context.Context, path string) (*parser.StructureReport, error) {
	if _, err := p.checkFile(path); err != nil {
		return nil, err
	}
	doc, err := p.parse(ctx, path)
	if err != nil {
		return nil, err
	}
	report := parser.Inspect(doc)
	return &report, nil
}

func (p *processor) SupportedFormats() []Format {
	var out []Format
	for _, f := range knownFormats {
		if slices.Contains(p.allowed, f) {
			out = append(out, Format{Extension: "." + f, Description: formatDescriptions[f]})
		}
	}
	return out
}

func (p *processor) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Provider:           p.cfg.LLM.Provider,
		Model:              p.model,
		PerformanceTargets: defaultTargets,
	}
	for _, f := range p.SupportedFormats() {
		stats.SupportedFormats = append(stats.SupportedFormats, f.Extension)
	}
	if p.memory != nil {
		ms := p.memory.Stats()
		stats.Cache = &ms
	}
	if p.store != nil {
		st, err := p.store.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading store stats: %w", err)
		}
		stats.Store = st
	}
	return stats, nil
}

func (p *processor) Document(ctx context.Context, id string) (*store.Extraction, error) {
	if p.store == nil {
		return nil, ErrPersistenceDisabled
	}
	return p.store.GetExtraction(ctx, id)
}

func (p *processor) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// contentKey derives the parse cache key from the file's bytes.
func contentKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", err
	}
	return cache.Key("parse", map[string]string{
		"sha256": hex.EncodeToString(h.Sum(nil)),
		"size":   strconv.FormatInt(n, 10),
		"format": parser.DetectFormat(path),
	}), nil
}
