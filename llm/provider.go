package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface for LLM interactions.
type Provider interface {
	Completer

	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Model returns the model name requests are sent to.
	Model() string
}

// Completer turns a single prompt into generated text. It is the narrow
// dependency the extraction pipeline needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (*Completion, error)
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Completion is the result of a Complete call.
type Completion struct {
	Text             string        `json:"text"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Duration         time.Duration `json:"duration"`
	Cached           bool          `json:"cached"`
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an LLM provider.
type Config struct {
	Provider       string `json:"provider" yaml:"provider" mapstructure:"provider"` // ollama, openai, groq, lmstudio, openrouter, custom
	Model          string `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL        string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey         string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the first backoff step. Zero uses the default.
	RetryDelay time.Duration `json:"-" yaml:"-" mapstructure:"-"`
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "openai", "groq", "lmstudio", "openrouter", "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
