package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/landchain/internal/cache"
	"github.com/ppiankov/landchain/internal/llm"
	"github.com/ppiankov/landchain/internal/model"
	"github.com/ppiankov/landchain/internal/worker"
)

// LLMExtractor asks the configured model to abstract free-form instrument text
// into rows. Responses are cached by provider, model and document content, and
// calls are throttled per provider.
type LLMExtractor struct {
	rows    *llm.RowExtractor
	model   string
	cache   cache.Cache
	ttl     time.Duration
	limiter *worker.Limiter
	logger  *slog.Logger
}

// LLMOption configures an LLMExtractor
type LLMOption func(*LLMExtractor)

// WithCache caches extracted rows for ttl
func WithCache(c cache.Cache, ttl time.Duration) LLMOption {
	return func(e *LLMExtractor) {
		e.cache = c
		e.ttl = ttl
	}
}

// WithLimiter throttles provider calls
func WithLimiter(l *worker.Limiter) LLMOption {
	return func(e *LLMExtractor) {
		e.limiter = l
	}
}

// WithLogger sets the logger for cache and provider diagnostics
func WithLogger(l *slog.Logger) LLMOption {
	return func(e *LLMExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewLLMExtractor wraps a row extractor. modelName is part of the cache key.
func NewLLMExtractor(rows *llm.RowExtractor, modelName string, opts ...LLMOption) *LLMExtractor {
	e := &LLMExtractor{
		rows:   rows,
		model:  modelName,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extractor name
func (e *LLMExtractor) Name() string {
	if name := e.rows.ProviderName(); name != "" {
		return "llm:" + name
	}
	return "llm"
}

// CanHandle is true whenever a provider is configured
func (e *LLMExtractor) CanHandle(doc Document) bool {
	return e.rows.IsEnabled()
}

// Extract returns cached rows when present, otherwise calls the provider
func (e *LLMExtractor) Extract(ctx context.Context, doc Document) ([]model.RawRow, error) {
	provider := e.rows.ProviderName()
	key := cache.CacheKey("rows", provider, e.model, doc.Content)

	if e.cache != nil {
		if rows, ok := cache.GetRows(e.cache, key); ok {
			e.logger.Debug("extraction cache hit", "provider", provider, "document", doc.Name)
			return rows, nil
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, provider); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	rows, err := e.rows.Extract(ctx, strings.TrimSpace(doc.Content))
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := cache.SetRows(e.cache, key, rows, e.ttl); err != nil {
			e.logger.Warn("extraction cache write failed", "provider", provider, "error", err)
		}
	}
	return rows, nil
}
