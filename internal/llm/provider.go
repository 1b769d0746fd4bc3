package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ExtractRows turns recorded-instrument text into runsheet rows
	ExtractRows(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ExtractRequest contains the input for row extraction
type ExtractRequest struct {
	// Document is OCR or pasted text of one or more recorded instruments
	Document string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ExtractResponse contains the rows the model produced
type ExtractResponse struct {
	Rows []model.RawRow

	// Raw is the unparsed model output, kept for troubleshooting
	Raw string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   60,
		MaxTokens: 2000,
	}
}

// systemPrompt frames every extraction call
const systemPrompt = "You transcribe recorded land instruments into runsheet rows. You never invent instruments, parties, dates or fractions that are not in the text."

// rowColumns are the columns the model is asked to fill. They match headers the
// normalizer already recognizes.
var rowColumns = []string{
	"instrument_type", "grantor", "grantee", "dated_date", "recorded_date",
	"legal_description", "book", "page", "document_number", "term", "comments",
}

// BuildPrompt constructs the default extraction prompt
func BuildPrompt(document string) string {
	return fmt.Sprintf(`Extract every recorded instrument in the text below as one runsheet row.

RULES:
1. Answer with a JSON array of objects and nothing else.
2. Use exactly these keys: %s
3. Put multiple grantors or grantees on separate lines, each with its stated interest in parentheses, e.g. "Alice Roe (1/2)".
4. Copy dates as written. Use "" for anything the text does not state.
5. Put lease terms, reservations and any well or production mentions in comments.

TEXT:
%s
`, strings.Join(rowColumns, ", "), document)
}

// ParseRows reads the JSON array of rows from a model answer. Code fences and text
// around the array are ignored; non-string values are rendered as text.
func ParseRows(text string) ([]model.RawRow, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}

	rows := make([]model.RawRow, 0, len(items))
	for _, item := range items {
		row := make(model.RawRow, len(item))
		for k, v := range item {
			row[k] = cellText(v)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("model returned no rows")
	}
	return rows, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, cellText(p))
		}
		return strings.Join(parts, "\n")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
