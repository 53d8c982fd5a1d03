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
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	anthropicVersion        = "2023-06-01"
)

// anthropicClient implements Client for the Anthropic messages API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config, logger *slog.Logger) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    strings.TrimRight(baseURL, "/") + "/messages",
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient:  newHTTPClient(cfg.Timeout, logger),
	}, nil
}

// Generate sends prompt as a single user message and joins the text blocks of
// the reply.
func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var response anthropicResponse
	if err := postJSON(ctx, c.httpClient, c.endpoint, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, requestBody, &response); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", common.Permanent(fmt.Errorf("anthropic: no content in response"))
	}
	return text.String(), nil
}

// anthropicResponse represents the parts of the Anthropic response we use.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
