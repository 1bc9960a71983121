package reference

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/orders-intake/internal/common"
)

const bundleKey = "bundle"

// CachedLoader keeps the last bundle for a TTL and retries the underlying
// loader with exponential backoff.
type CachedLoader struct {
	inner         Loader
	cache         *cache.Cache
	maxAttempts   int
	retryInterval time.Duration
	logger        *slog.Logger

	mu sync.Mutex
}

type Option func(*CachedLoader)

func WithRetry(maxAttempts int, interval time.Duration) Option {
	return func(c *CachedLoader) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *CachedLoader) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCachedLoader(inner Loader, ttl time.Duration, opts ...Option) *CachedLoader {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &CachedLoader{
		inner:         inner,
		cache:         cache.New(ttl, 2*ttl),
		maxAttempts:   3,
		retryInterval: time.Second,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load returns the cached bundle or loads a new one. Exhausted retries are a
// batch-level failure.
func (c *CachedLoader) Load(ctx context.Context) (*Bundle, error) {
	if b, ok := c.cached(); ok {
		return b, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.cached(); ok {
		return b, nil
	}

	start := time.Now()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxAttempts-1)), ctx)

	attempt := 0
	b, err := backoff.RetryNotifyWithData(func() (*Bundle, error) {
		attempt++
		b, err := c.inner.Load(ctx)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, backoff.Permanent(err)
		}
		return b, err
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("reference.load.retry", "attempt", attempt, "wait_ms", wait.Milliseconds(), "err", err)
	})
	if err != nil {
		c.logger.Error("reference.load.failed", "attempts", attempt, "err", err)
		return nil, common.BatchLevelError("load reference data", err)
	}
	if b == nil {
		return nil, common.BatchLevelError("load reference data", errors.New("loader returned no bundle"))
	}

	c.cache.SetDefault(bundleKey, b)
	c.logger.Info("reference.load.ok",
		"customers", len(b.Customers),
		"families", len(b.Families),
		"colors", len(b.Colors),
		"elapsed_ms", time.Since(start).Milliseconds())
	return b, nil
}

// Invalidate drops the cached bundle so the next Load hits the loader.
func (c *CachedLoader) Invalidate() {
	c.cache.Delete(bundleKey)
}

func (c *CachedLoader) cached() (*Bundle, bool) {
	v, ok := c.cache.Get(bundleKey)
	if !ok {
		return nil, false
	}
	b, ok := v.(*Bundle)
	return b, ok
}
