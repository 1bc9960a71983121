package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/orders-intake/internal/common"
)

// Caller sends prompts through a Completer and decodes schema-checked JSON replies.
// It is safe for concurrent use; every extractor in a batch shares one Caller so
// the rate limit applies across all of them.
type Caller struct {
	completer     Completer
	limiter       *rate.Limiter
	maxAttempts   int
	retryInterval time.Duration
	maxTokens     int
	lenient       bool
	logger        *slog.Logger
}

type CallerOption func(*Caller)

func WithRateLimit(perSecond float64, burst int) CallerOption {
	return func(c *Caller) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func WithRetry(maxAttempts int, interval time.Duration) CallerOption {
	return func(c *Caller) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

func WithMaxTokens(n int) CallerOption {
	return func(c *Caller) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithStrictSchema disables the sanitize pass that runs when a reply fails validation.
func WithStrictSchema() CallerOption {
	return func(c *Caller) { c.lenient = false }
}

func WithLogger(l *slog.Logger) CallerOption {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCaller(completer Completer, opts ...CallerOption) *Caller {
	c := &Caller{
		completer:     completer,
		limiter:       rate.NewLimiter(rate.Inf, 0),
		maxAttempts:   3,
		retryInterval: 2 * time.Second,
		maxTokens:     4096,
		lenient:       true,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CallJSON sends req and decodes the reply into out after validating it against
// schema. Transport errors and unusable replies are retried with exponential
// backoff; once attempts are exhausted the error wraps common.ErrExternalCall.
func (c *Caller) CallJSON(ctx context.Context, req Request, schema map[string]any, out any) error {
	rid := uuid.New().String()
	start := time.Now()
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Tier == "" {
		req.Tier = TierDefault
	}

	c.logger.Info("llm.call.start",
		"req_id", rid,
		"tier", req.Tier,
		"prompt_len", len(req.Prompt),
		"job_id", common.JobIDFromContext(ctx),
		"entry_id", common.EntryIDFromContext(ctx),
	)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxAttempts-1)), ctx)

	attempt := 0
	doc, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		text, err := c.completer.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return c.decode(rid, text, schema)
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("llm.call.retry",
			"req_id", rid,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	})
	if err != nil {
		c.logger.Error("llm.call.failed",
			"req_id", rid,
			"attempts", attempt,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return common.ExternalCallError("llm", fmt.Errorf("after %d attempt(s): %w", attempt, err))
	}

	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("%w: decode reply: %v", common.ErrInvalidFieldFormat, err)
	}
	c.logger.Info("llm.call.ok",
		"req_id", rid,
		"attempts", attempt,
		"bytes", len(doc),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (c *Caller) decode(rid, text string, schema map[string]any) ([]byte, error) {
	doc, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return doc, nil
	}
	// strict first, then a lenient sanitize pass
	verr := ValidateJSONAgainstSchema(schema, doc)
	if verr == nil {
		return doc, nil
	}
	if !c.lenient {
		return nil, verr
	}
	cleaned, changed, err := SanitizeOptionalFields(doc, schema, c.logger)
	if err != nil {
		return nil, err
	}
	if err := ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.logger.Warn("llm.call.schema_invalid", "req_id", rid, "error", err)
		return nil, err
	}
	c.logger.Warn("llm.call.lenient_sanitize_applied", "req_id", rid, "changed", changed)
	return cleaned, nil
}

var errNoJSON = errors.New("no JSON object in reply")

// ExtractJSON finds the JSON object in a model reply: the whole text, a
// ```json fence, any ``` fence, or the outermost {...} span.
func ExtractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if json.Valid([]byte(text)) && strings.HasPrefix(text, "{") {
		return []byte(text), nil
	}
	for _, marker := range []string{"```json", "```"} {
		if i := strings.Index(text, marker); i >= 0 {
			rest := text[i+len(marker):]
			if j := strings.Index(rest, "```"); j >= 0 {
				candidate := strings.TrimSpace(rest[:j])
				if json.Valid([]byte(candidate)) {
					return []byte(candidate), nil
				}
			}
		}
	}
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		candidate := text[i : j+1]
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}
	return nil, errNoJSON
}
