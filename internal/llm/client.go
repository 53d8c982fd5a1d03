package llm

import (
	"context"
	"time"
)

// Client is a text-generation service: a prompt goes in, reply text comes out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // overrides the provider endpoint, mainly for tests and proxies
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Defaults applied when Config leaves a field empty.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 256
)
