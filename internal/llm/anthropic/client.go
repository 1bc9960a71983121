// Package anthropic implements llm.Completer over the Anthropic messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goanthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Models      llm.Models
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	api    *goanthropic.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Models.Default == "" {
		cfg.Models.Default = "claude-sonnet-4-5-20250929"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var opts []goanthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, goanthropic.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		cfg:    cfg,
		api:    goanthropic.NewClient(cfg.APIKey, opts...),
		logger: logger,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	model := c.cfg.Models.For(req.Tier)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	temp := c.cfg.Temperature
	resp, err := c.api.CreateMessages(ctx, goanthropic.MessagesRequest{
		Model:       goanthropic.Model(model),
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
		Messages: []goanthropic.Message{
			{
				Role:    goanthropic.RoleUser,
				Content: []goanthropic.MessageContent{goanthropic.NewTextMessageContent(req.Prompt)},
			},
		},
	})
	if err != nil {
		c.logger.Error("llm.anthropic.error", "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Text != nil {
			b.WriteString(*part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content in response")
	}
	c.logger.Debug("llm.anthropic.response", "model", model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(b.String()), nil
}
