package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/txmatch/internal/common"
)

// NewClient creates a provider client from the configuration.
func NewClient(cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg, logger)
	case "anthropic":
		return newAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
