// Package pipeline is the caller side of the engine: it loads tract input
// files, runs document extraction, runs the engine and renders reports.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ppiankov/landchain/internal/cache"
	"github.com/ppiankov/landchain/internal/engine"
	"github.com/ppiankov/landchain/internal/extract"
	"github.com/ppiankov/landchain/internal/llm"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/normalize"
	"github.com/ppiankov/landchain/internal/worker"
)

// Pipeline orchestrates one tract analysis
type Pipeline struct {
	config   *model.Config
	engine   *engine.Engine
	chain    *extract.Chain
	fetcher  *Fetcher
	renderer *Renderer
	dates    normalize.DateParser
	logger   *slog.Logger

	asOf        model.RecordDate // Overrides the tract file
	defaultAsOf model.RecordDate // Used when the tract file has none
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the diagnostics logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAsOf measures lease status at d regardless of the tract file
func WithAsOf(d model.RecordDate) Option {
	return func(p *Pipeline) { p.asOf = d }
}

// WithDefaultAsOf measures lease status at d when the tract file gives no date
func WithDefaultAsOf(d model.RecordDate) Option {
	return func(p *Pipeline) { p.defaultAsOf = d }
}

// WithChain replaces the extraction chain
func WithChain(c *extract.Chain) Option {
	return func(p *Pipeline) { p.chain = c }
}

// WithFetcher replaces the document fetcher
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// NewPipeline creates a pipeline. An LLM provider that cannot be built is
// logged and left out of the chain; structural extractors still run.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:   cfg,
		engine:   engine.New(cfg.Engine),
		fetcher:  NewFetcherFromConfig(cfg.Fetch),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		dates: normalize.DateParser{
			YearOnlyMonth: time.Month(cfg.Engine.YearOnlyMonth),
			YearOnlyDay:   cfg.Engine.YearOnlyDay,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.chain == nil {
		p.chain = extract.NewDefaultChain(p.llmExtractor(), p.logger)
	}
	return p, nil
}

func (p *Pipeline) llmExtractor() *extract.LLMExtractor {
	if p.config.LLM.Provider == "" {
		return nil
	}

	llmCfg := llm.ConfigFromModel(p.config.LLM)
	rows, err := llm.NewRowExtractor(llmCfg)
	if err != nil {
		p.logger.Warn("LLM extraction disabled", "provider", llmCfg.Provider, "error", err)
		return nil
	}

	opts := []extract.LLMOption{
		extract.WithLimiter(worker.NewLimiter(p.config.RateLimiting.RequestsPerSecond, p.config.RateLimiting.BurstSize)),
		extract.WithLogger(p.logger),
	}
	if p.config.Cache.Enabled {
		c := cache.NewLayeredCache(p.config.Cache.MemoryTTL, p.config.Cache.Dir, p.config.Cache.DiskTTL)
		opts = append(opts, extract.WithCache(c, p.config.Cache.DiskTTL))
	}
	return extract.NewLLMExtractor(rows, llmCfg.Model, opts...)
}

// Engine returns the pipeline's engine, for incremental callers
func (p *Pipeline) Engine() *engine.Engine {
	return p.engine
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// ParseDate reads a caller-supplied date with the runsheet date rules
func (p *Pipeline) ParseDate(s string) (model.RecordDate, error) {
	d, ok := p.dates.Parse(s)
	if !ok {
		return model.RecordDate{}, fmt.Errorf("unrecognized date %q", s)
	}
	return d, nil
}

// Result is one tract's analysis
type Result struct {
	Report     *model.Report
	Request    engine.Request
	Extraction *extract.Result
}

// AnalyzeFile loads a tract file and returns its report
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*model.Report, error) {
	tf, err := LoadTractFile(path)
	if err != nil {
		return nil, err
	}
	result, err := p.Analyze(ctx, tf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result.Report, nil
}

// Analyze gathers every row for the tract and runs the engine
func (p *Pipeline) Analyze(ctx context.Context, tf *TractFile) (*Result, error) {
	// 1. As-of date
	asOf := p.asOf
	if !asOf.Valid() && tf.AsOf != "" {
		d, err := p.ParseDate(tf.AsOf)
		if err != nil {
			return nil, fmt.Errorf("as_of: %w", err)
		}
		asOf = d
	}
	if !asOf.Valid() {
		asOf = p.defaultAsOf
	}

	// 2. Inline rows, then the runsheet file
	rows := append([]model.RawRow(nil), tf.Rows...)
	if tf.Runsheet != "" {
		sheet, err := p.loadRunsheet(tf.resolve(tf.Runsheet))
		if err != nil {
			return nil, err
		}
		rows = append(rows, sheet...)
	}

	// 3. Documents through the extraction chain
	docs, flags, err := p.documents(ctx, tf)
	if err != nil {
		return nil, err
	}
	extraction := &extract.Result{}
	if len(docs) > 0 {
		extraction, err = p.chain.ExtractAll(ctx, docs)
		if err != nil {
			return nil, err
		}
		rows = append(rows, extraction.Rows...)
	}
	flags = append(flags, extraction.Flags...)

	// 4. Engine
	req := engine.Request{
		Prospect:         tf.Prospect,
		LegalDescription: tf.LegalDescription,
		AsOf:             asOf,
		Rows:             rows,
		Overrides:        tf.Overrides,
	}
	report := p.engine.Run(req)
	if len(flags) > 0 {
		report.Flags = append(flags, report.Flags...)
	}

	p.logger.Info("tract analyzed",
		"prospect", tf.Prospect, "rows", len(rows), "owners", len(report.Owners), "flags", len(report.Flags))

	return &Result{Report: report, Request: req, Extraction: extraction}, nil
}

func (p *Pipeline) loadRunsheet(path string) ([]model.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runsheet: %w", err)
	}
	rows, err := extract.NewDelimitedExtractor().Extract(context.Background(), extract.Document{
		Name:        path,
		ContentType: contentTypeFor(path),
		Content:     string(data),
	})
	if err != nil {
		return nil, fmt.Errorf("runsheet %s: %w", path, err)
	}
	return rows, nil
}

// documents resolves every document source. Unreadable local files are errors;
// failed downloads become flags so the rest of the tract still runs.
func (p *Pipeline) documents(ctx context.Context, tf *TractFile) ([]extract.Document, []model.Flag, error) {
	var docs []extract.Document
	var flags []model.Flag

	for i, src := range tf.Documents {
		doc := extract.Document{Name: src.Name, ContentType: src.ContentType, Content: src.Content}

		switch {
		case src.Path != "":
			path := tf.resolve(src.Path)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("read document: %w", err)
			}
			doc.Content = string(data)
			if doc.Name == "" {
				doc.Name = src.Path
			}
			if doc.ContentType == "" {
				doc.ContentType = contentTypeFor(path)
			}

		case src.URL != "":
			fetched, err := p.fetcher.FetchWithRetry(ctx, src.URL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				flags = append(flags, model.Flag{
					Stage:    model.StageExtraction,
					Severity: model.SeverityCritical,
					Document: src.URL,
					Note:     fmt.Sprintf("document could not be fetched: %v", err),
				})
				continue
			}
			doc.Content = fetched.Content
			if doc.Name == "" {
				doc.Name = fetched.Name
			}
			if doc.ContentType == "" {
				doc.ContentType = fetched.ContentType
			}
			if fetched.Truncated {
				flags = append(flags, model.Flag{
					Stage:    model.StageExtraction,
					Severity: model.SeverityWarning,
					Document: doc.Name,
					Note:     fmt.Sprintf("document truncated at %d bytes", p.config.Fetch.MaxBytes),
				})
			}
		}

		if doc.Name == "" {
			doc.Name = fmt.Sprintf("document %d", i+1)
		}
		docs = append(docs, doc)
	}
	return docs, flags, nil
}

// RenderReport writes the requested outputs and prints the summary line to w
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(w, report)
	return nil
}
