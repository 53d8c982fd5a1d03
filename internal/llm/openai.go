package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Veraticus/txmatch/internal/common"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// openAIClient implements Client for the OpenAI chat completions API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config, logger *slog.Logger) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient:  newHTTPClient(cfg.Timeout, logger),
	}, nil
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	var response openAIResponse
	if err := postJSON(ctx, c.httpClient, c.endpoint, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, requestBody, &response); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", common.Permanent(fmt.Errorf("openai: no completion choices returned"))
	}
	return response.Choices[0].Message.Content, nil
}

// openAIResponse represents the parts of the OpenAI response we use.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
