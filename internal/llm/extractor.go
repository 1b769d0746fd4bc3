package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/landchain/internal/model"
)

// ErrDisabled is returned when no provider is configured
var ErrDisabled = errors.New("LLM extraction disabled")

// RowExtractor wraps a provider with configuration and a one-time availability check
type RowExtractor struct {
	provider Provider
	config   Config

	once      sync.Once
	available bool
}

// NewRowExtractor creates an extractor from configuration. A missing provider yields
// a disabled extractor, not an error.
func NewRowExtractor(config Config) (*RowExtractor, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &RowExtractor{provider: provider, config: config}, nil
}

// NewRowExtractorWithProvider wraps an existing provider
func NewRowExtractorWithProvider(provider Provider, config Config) *RowExtractor {
	return &RowExtractor{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (e *RowExtractor) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (e *RowExtractor) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Extract turns document text into rows. The provider's availability is checked on
// first use; an unavailable provider fails every call so callers can fall back.
func (e *RowExtractor) Extract(ctx context.Context, document string) ([]model.RawRow, error) {
	if !e.IsEnabled() {
		return nil, ErrDisabled
	}

	e.once.Do(func() {
		e.available = e.provider.IsAvailable(ctx)
	})
	if !e.available {
		return nil, fmt.Errorf("LLM provider %s is not available", e.provider.Name())
	}

	resp, err := e.provider.ExtractRows(ctx, ExtractRequest{
		Document:  document,
		Model:     e.config.Model,
		MaxTokens: e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s extraction: %w", e.provider.Name(), err)
	}
	return resp.Rows, nil
}
