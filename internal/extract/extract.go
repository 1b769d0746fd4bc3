// Package extract turns source documents (county recorder exports, pasted
// runsheets, OCR text) into raw runsheet rows for the engine. Extractors are
// tried in order; the first one that yields rows wins and every failed attempt
// is kept as a review flag.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

// Document is one source document supplied by the caller
type Document struct {
	Name        string `yaml:"name" json:"name"`                                     // File name or caller label, used in flags
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"` // Optional hint: text/html, text/csv, text/plain
	Content     string `yaml:"content" json:"content"`
}

// Extractor turns one document into runsheet rows
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle reports whether the extractor should be attempted for the document
	CanHandle(doc Document) bool

	// Extract returns the rows found in the document; zero rows is an error
	Extract(ctx context.Context, doc Document) ([]model.RawRow, error)
}

// Attempt records one extractor's try at one document
type Attempt struct {
	Extractor string
	Document  string
	Rows      int
	Err       error
}

// Result is the outcome of running the chain
type Result struct {
	Rows     []model.RawRow
	Attempts []Attempt
	Flags    []model.Flag
}

// Chain runs extractors in registration order
type Chain struct {
	extractors []Extractor
	logger     *slog.Logger
}

// NewChain creates a chain over the given extractors. A nil logger discards.
func NewChain(logger *slog.Logger, extractors ...Extractor) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{extractors: extractors, logger: logger}
}

// NewDefaultChain registers the LLM extractor (when enabled) ahead of the
// structural extractors
func NewDefaultChain(llmExtractor *LLMExtractor, logger *slog.Logger) *Chain {
	var extractors []Extractor
	if llmExtractor != nil {
		extractors = append(extractors, llmExtractor)
	}
	extractors = append(extractors,
		NewHTMLTableExtractor(),
		NewDelimitedExtractor(),
		NewKeyValueExtractor(),
	)
	return NewChain(logger, extractors...)
}

// Register appends an extractor to the chain
func (c *Chain) Register(e Extractor) {
	c.extractors = append(c.extractors, e)
}

// Extractors returns the registered extractor names in order
func (c *Chain) Extractors() []string {
	names := make([]string, 0, len(c.extractors))
	for _, e := range c.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Extract runs the chain over one document. It only returns an error when ctx
// is cancelled; everything else is reported through attempts and flags.
func (c *Chain) Extract(ctx context.Context, doc Document) (*Result, error) {
	result := &Result{}

	if strings.TrimSpace(doc.Content) == "" {
		result.Flags = append(result.Flags, extractionFlag(model.SeverityCritical, doc.Name,
			"document is empty; no rows extracted"))
		return result, nil
	}

	for _, e := range c.extractors {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract %s: %w", doc.Name, err)
		}
		if !e.CanHandle(doc) {
			continue
		}

		rows, err := e.Extract(ctx, doc)
		attempt := Attempt{Extractor: e.Name(), Document: doc.Name, Rows: len(rows), Err: err}
		result.Attempts = append(result.Attempts, attempt)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("extract %s: %w", doc.Name, ctxErr)
			}
			c.logger.Warn("extractor failed", "extractor", e.Name(), "document", doc.Name, "error", err)
			result.Flags = append(result.Flags, extractionFlag(model.SeverityWarning, doc.Name,
				fmt.Sprintf("%s extractor failed: %v", e.Name(), err)))
			continue
		}

		c.logger.Info("rows extracted", "extractor", e.Name(), "document", doc.Name, "rows", len(rows))
		result.Rows = rows
		if len(result.Attempts) > 1 {
			result.Flags = append(result.Flags, extractionFlag(model.SeverityInfo, doc.Name,
				fmt.Sprintf("rows extracted by fallback %s extractor", e.Name())))
		}
		return result, nil
	}

	result.Flags = append(result.Flags, extractionFlag(model.SeverityCritical, doc.Name,
		"no extractor produced rows; document requires manual abstracting"))
	return result, nil
}

// ExtractAll runs the chain over every document and concatenates rows in
// document order
func (c *Chain) ExtractAll(ctx context.Context, docs []Document) (*Result, error) {
	all := &Result{}
	for _, doc := range docs {
		res, err := c.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		all.Rows = append(all.Rows, res.Rows...)
		all.Attempts = append(all.Attempts, res.Attempts...)
		all.Flags = append(all.Flags, res.Flags...)
	}
	return all, nil
}

func extractionFlag(sev model.Severity, document, note string) model.Flag {
	return model.Flag{Stage: model.StageExtraction, Severity: sev, Document: document, Note: note}
}
