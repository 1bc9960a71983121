// Package provider builds the configured llm.Completer.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/llm/anthropic"
	"github.com/joseph-ayodele/orders-intake/internal/llm/openai"
)

func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	models := llm.Models{Default: cfg.DefaultModel, Complex: cfg.ComplexModel}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "claude", "":
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Models:      models,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Models:      models,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", common.ErrInvalidInput, cfg.Provider)
	}
}

// NewCaller wires the configured provider behind a rate-limited, retrying Caller.
func NewCaller(cfg common.LLMConfig, logger *slog.Logger) (*llm.Caller, error) {
	c, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewCaller(c,
		llm.WithRateLimit(cfg.RatePerSecond, cfg.Burst),
		llm.WithRetry(cfg.MaxAttempts, cfg.RetryInterval),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithLogger(logger),
	), nil
}
