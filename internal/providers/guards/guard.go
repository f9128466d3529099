// Package guards wraps outbound provider calls with a shared cache, a token
// bucket and a circuit breaker.
package guards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/astrorun/internal/cache"
)

// Config holds guard settings for one provider.
type Config struct {
	Name          string        `yaml:"name"`
	TTL           time.Duration `yaml:"ttl"`
	BurstLimit    int           `yaml:"burst_limit"`
	SustainedRate float64       `yaml:"sustained_rate"` // requests per second
	MaxRetries    int           `yaml:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base"`

	// Breaker settings. The breaker trips after FailureThreshold
	// consecutive failures and probes again after OpenTimeout.
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "provider"
	}
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.BurstLimit <= 0 {
		c.BurstLimit = 10
	}
	if c.SustainedRate <= 0 {
		c.SustainedRate = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 100 * time.Millisecond
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 3
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// ProviderError is an upstream failure with retry guidance.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s error: %s", e.Provider, e.Message)
}

// RetryableStatus reports whether an HTTP status is worth another attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isClientError reports a 4xx answer other than 429: the upstream is up and
// refused this particular request.
func isClientError(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode >= 400 && pe.StatusCode < 500 && pe.StatusCode != http.StatusTooManyRequests
}

// Observer receives guard events. Implementations must be safe for
// concurrent use.
type Observer interface {
	CacheResult(provider string, hit bool)
	RateLimited(provider string)
	BreakerState(provider string, state gobreaker.State)
}

type nopObserver struct{}

func (nopObserver) CacheResult(string, bool)             {}
func (nopObserver) RateLimited(string)                   {}
func (nopObserver) BreakerState(string, gobreaker.State) {}

// Guard applies cache, rate limit and breaker to fetches.
type Guard struct {
	config   Config
	cache    cache.Cache
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	observer Observer
	sleep    func(context.Context, time.Duration) error
}

// Option customises a Guard.
type Option func(*Guard)

// WithObserver reports guard events to o.
func WithObserver(o Observer) Option {
	return func(g *Guard) {
		if o != nil {
			g.observer = o
		}
	}
}

// New builds a guard. A nil cache disables caching.
func New(cfg Config, c cache.Cache, opts ...Option) *Guard {
	cfg = cfg.withDefaults()
	g := &Guard{
		config:   cfg,
		cache:    c,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SustainedRate), cfg.BurstLimit),
		observer: nopObserver{},
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}

	st := gobreaker.Settings{Name: cfg.Name}
	st.Timeout = cfg.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.FailureThreshold
	}
	st.IsSuccessful = func(err error) bool {
		// Caller cancellation and rejected requests say nothing about
		// upstream health.
		return err == nil || errors.Is(err, context.Canceled) || isClientError(err)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
			Msg("circuit breaker state changed")
		g.observer.BreakerState(name, to)
	}
	g.breaker = gobreaker.NewCircuitBreaker(st)
	return g
}

// Name returns the guarded provider name.
func (g *Guard) Name() string { return g.config.Name }

// State returns the breaker state.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }

// Execute returns the cached payload for key or calls fetch under the
// limiter and breaker, caching a successful result. The boolean reports a
// cache hit.
func (g *Guard) Execute(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if g.cache != nil {
		b, found, err := g.cache.Get(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("provider", g.config.Name).Msg("cache read failed")
		}
		if found {
			g.observer.CacheResult(g.config.Name, true)
			return b, true, nil
		}
		g.observer.CacheResult(g.config.Name, false)
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := g.sleep(ctx, g.backoff(attempt)); err != nil {
				return nil, false, err
			}
		}
		b, err := g.attempt(ctx, fetch)
		if err == nil {
			if g.cache != nil {
				if cerr := g.cache.Set(ctx, key, b, g.config.TTL); cerr != nil {
					log.Debug().Err(cerr).Str("provider", g.config.Name).Msg("cache write failed")
				}
			}
			return b, false, nil
		}
		lastErr = err
		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Retryable {
			break
		}
	}
	return nil, false, lastErr
}

func (g *Guard) attempt(ctx context.Context, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if !g.limiter.Allow() {
		g.observer.RateLimited(g.config.Name)
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Provider: g.config.Name, Message: "rate limit exceeded", Retryable: false}
		}
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ProviderError{Provider: g.config.Name, Message: "circuit breaker open"}
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// backoff doubles from BackoffBase, capped at 30s.
func (g *Guard) backoff(attempt int) time.Duration {
	d := g.config.BackoffBase << uint(attempt-1)
	if d <= 0 || d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
