package completion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxd/inboxd/internal/config"
)

// New builds a completion client from configuration.
func New(log *slog.Logger, cfg config.CompletionConfig) (Service, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.ClientType {
	case "anthropic-messages":
		return NewAnthropicClient(log, cfg.BaseURL, cfg.APIKey, cfg.Model, timeout), nil
	case "openai-completions":
		return NewOpenAIClient(log, cfg.BaseURL, cfg.APIKey, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown completion client type %q", cfg.ClientType)
	}
}
