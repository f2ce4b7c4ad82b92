package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atlas-esg/esia-review/internal/resilience"
)

// WithResilience wraps a client with retry and a circuit breaker. Transient
// provider errors (429, 5xx, timeouts) are retried with backoff; sustained
// failure opens the breaker so a rate-limited run fails fast instead of
// hammering the API for every remaining chunk.
func WithResilience(c Client, maxAttempts int) Client {
	retryCfg := resilience.DefaultRetryConfig()
	if maxAttempts > 0 {
		retryCfg.MaxAttempts = maxAttempts
	}
	retryCfg.OnRetry = resilience.RetryLogger(c.Provider(), "complete")

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		OnStateChange: func(from, to resilience.BreakerState) {
			zap.L().Warn("provider circuit state changed",
				zap.String("provider", c.Provider()),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	return &resilientClient{inner: c, retryCfg: retryCfg, breaker: breaker}
}

type resilientClient struct {
	inner    Client
	retryCfg resilience.RetryConfig
	breaker  *resilience.Breaker
}

func (c *resilientClient) Provider() string { return c.inner.Provider() }

func (c *resilientClient) Complete(ctx context.Context, req Request) (*Response, error) {
	return resilience.DoVal(ctx, c.retryCfg, func(ctx context.Context) (*Response, error) {
		return resilience.Call(ctx, c.breaker, func(ctx context.Context) (*Response, error) {
			return c.inner.Complete(ctx, req)
		})
	})
}

// WithRateLimit wraps a client with a token-bucket limiter. The pipeline is
// sequential, so a burst of 1 is enough.
func WithRateLimit(c Client, rps float64) Client {
	return &limitedClient{inner: c, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

type limitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

func (c *limitedClient) Provider() string { return c.inner.Provider() }

func (c *limitedClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "llm: rate limiter wait")
	}
	return c.inner.Complete(ctx, req)
}

// WithCache wraps a client with an in-memory response cache keyed by the full
// request. Re-running a stage over an unchanged document becomes free.
func WithCache(c Client, ttlMins int) Client {
	ttl := time.Duration(ttlMins) * time.Minute
	return &cachedClient{
		inner: c,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

type cachedClient struct {
	inner Client
	cache *gocache.Cache
}

func (c *cachedClient) Provider() string { return c.inner.Provider() }

func (c *cachedClient) Complete(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(c.inner.Provider(), req)
	if cached, found := c.cache.Get(key); found {
		resp := cached.(*Response)
		zap.L().Debug("llm cache hit", zap.String("model", req.Model))
		// Cached responses cost nothing; report zero usage.
		return &Response{Text: resp.Text, Model: resp.Model}, nil
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, resp, gocache.DefaultExpiration)
	return resp, nil
}

func cacheKey(provider string, req Request) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}
