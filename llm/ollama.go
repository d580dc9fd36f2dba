package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1:8b"
)

// ollamaProvider implements Provider for Ollama. Completions use the native
// /api/generate endpoint, chat goes through the OpenAI-compatible one.
type ollamaProvider struct {
	base httpClient
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ollamaProvider{base: newHTTPClient(cfg)}
}

func (p *ollamaProvider) Model() string { return p.base.cfg.Model }

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, "/v1/chat/completions", req)
}

func (p *ollamaProvider) Complete(ctx context.Context, prompt string, opts GenerateOptions) (*Completion, error) {
	body := ollamaGenerateRequest{
		Model:  p.base.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}

	start := time.Now()
	respBody, err := p.base.post(ctx, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding ollama response: %v", ErrRequestFailed, err)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return nil, ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = p.base.cfg.Model
	}
	return &Completion{
		Text:             resp.Response,
		Model:            model,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		Duration:         time.Since(start),
	}, nil
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
