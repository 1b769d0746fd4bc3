package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/landchain/internal/util"
)

// OllamaProvider implements the Provider interface for Ollama local models.
// Extraction goes through Ollama's OpenAI-compatible /v1 endpoint.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	client     *openai.Client
	config     Config
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second // Local models are slow on long instruments
	}

	httpClient := util.NewHTTPClient(timeout, config.HTTPProxy, config.HTTPSProxy)

	// Ollama ignores the key, but the client requires one
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL + "/v1"
	clientConfig.HTTPClient = httpClient

	return &OllamaProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
		client:     openai.NewClientWithConfig(clientConfig),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if the provider is properly configured
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	// Check if Ollama is running by trying to list models
	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (request creation): %v\n", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (connection to %s): %v\n", p.baseURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (HTTP %d from %s)\n", resp.StatusCode, p.baseURL)
		return false
	}

	return true
}

// ExtractRows runs the extraction on a local model
func (p *OllamaProvider) ExtractRows(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	resp, err := chatExtract(ctx, p.client, p.config, model, req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if resp.TokensUsed == 0 {
		// Rough estimate: 1 token per 4 characters
		resp.TokensUsed = (len(req.Document) + len(resp.Raw)) / 4
	}
	return resp, nil
}
