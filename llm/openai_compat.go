package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// defaultBaseURLs holds the endpoint used when Config.BaseURL is empty.
// The custom provider has no default.
var defaultBaseURLs = map[string]string{
	"openai":     "https://api.openai.com",
	"groq":       "https://api.groq.com/openai",
	"lmstudio":   "http://localhost:1234",
	"openrouter": "https://openrouter.ai/api",
}

// defaultModels holds the model used when Config.Model is empty.
var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"groq":   "llama-3.3-70b-versatile",
}

// openAICompatProvider talks to any service exposing /v1/chat/completions.
type openAICompatProvider struct {
	base       httpClient
	pathPrefix string
}

// NewOpenAICompat creates an OpenAI-compatible provider. Defaults for the
// base URL and model are filled in from the provider name.
func NewOpenAICompat(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURLs[cfg.Provider]
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &openAICompatProvider{base: newHTTPClient(cfg), pathPrefix: "/v1"}
}

func (p *openAICompatProvider) Model() string { return p.base.cfg.Model }

func (p *openAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, p.pathPrefix+"/chat/completions", req)
}

// Complete sends the prompt as a single user message.
func (p *openAICompatProvider) Complete(ctx context.Context, prompt string, opts GenerateOptions) (*Completion, error) {
	start := time.Now()
	resp, err := p.Chat(ctx, ChatRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:             resp.Content,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		Duration:         time.Since(start),
	}, nil
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *httpClient) chat(ctx context.Context, path string, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat == "json_object" {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	respBody, err := c.post(ctx, path, body)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding chat response: %v", ErrRequestFailed, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrEmptyResponse)
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
