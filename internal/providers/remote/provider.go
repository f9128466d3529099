// Package remote fetches body positions from an HTTP ephemeris service.
//
// The service is queried per body and instant:
//
//	GET {base_url}/v1/positions/{body}?instant=2024-06-21T00:00:00Z&frame=heliocentric
//	Authorization: Bearer {api_key}
//
// and answers {"longitude": .., "latitude": .., "distance_au": ..}.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sawpanic/astrorun/internal/cache"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/providers/guards"
)

const providerName = "remote"

// Config holds the remote endpoint and its guard limits.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Frame      string        `yaml:"-"` // follows ephemeris.frame
	Timeout    time.Duration `yaml:"timeout"`
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	TTL        time.Duration `yaml:"ttl"`
	MaxRetries int           `yaml:"max_retries"`
	Circuit    CircuitConfig `yaml:"circuit"`
}

// CircuitConfig tunes the breaker in front of the service.
type CircuitConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// GuardConfig maps the remote settings onto a guard.
func (c Config) GuardConfig() guards.Config {
	return guards.Config{
		Name:             providerName,
		TTL:              c.TTL,
		BurstLimit:       c.Burst,
		SustainedRate:    c.RPS,
		MaxRetries:       c.MaxRetries,
		FailureThreshold: c.Circuit.FailureThreshold,
		OpenTimeout:      c.Circuit.OpenTimeout,
	}
}

// Provider implements ephemeris.Provider over HTTP.
type Provider struct {
	base   *url.URL
	config Config
	client *http.Client
	guard  *guards.Guard
}

// Option customises a Provider.
type Option func(*options)

type options struct {
	client   *http.Client
	observer guards.Observer
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithGuardObserver forwards cache, limiter and breaker events.
func WithGuardObserver(obs guards.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New validates cfg and builds a provider. A nil cache disables caching.
func New(cfg Config, c cache.Cache, opts ...Option) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote provider: base_url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote provider: invalid base_url %q", cfg.BaseURL)
	}
	if cfg.Frame == "" {
		cfg.Frame = "heliocentric"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}
	var gopts []guards.Option
	if o.observer != nil {
		gopts = append(gopts, guards.WithObserver(o.observer))
	}

	return &Provider{
		base:   base,
		config: cfg,
		client: o.client,
		guard:  guards.New(cfg.GuardConfig(), c, gopts...),
	}, nil
}

// Name implements ephemeris.Provider.
func (p *Provider) Name() string { return providerName }

// Guard exposes the guard for health reporting.
func (p *Provider) Guard() *guards.Guard { return p.guard }

type positionResponse struct {
	Longitude  *float64 `json:"longitude"`
	Latitude   *float64 `json:"latitude"`
	DistanceAU *float64 `json:"distance_au"`
}

// Position implements ephemeris.Provider.
func (p *Provider) Position(ctx context.Context, body ephemeris.Body, instant time.Time) (ephemeris.Coordinates, error) {
	if !body.Valid() {
		return ephemeris.Coordinates{}, fmt.Errorf("remote provider: unknown body %d", int(body))
	}
	instant = instant.UTC()
	key := fmt.Sprintf("%s:%s:%s:%d", providerName, p.config.Frame, strings.ToLower(body.String()), instant.Unix())

	raw, _, err := p.guard.Execute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return p.fetch(ctx, body, instant)
	})
	if err != nil {
		return ephemeris.Coordinates{}, err
	}

	var resp positionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ephemeris.Coordinates{}, fmt.Errorf("decode position: %w", err)
	}
	if resp.Longitude == nil || resp.Latitude == nil || resp.DistanceAU == nil {
		return ephemeris.Coordinates{}, &guards.ProviderError{Provider: providerName, Message: "incomplete position payload"}
	}
	return ephemeris.Coordinates{
		Longitude:  *resp.Longitude,
		Latitude:   *resp.Latitude,
		DistanceAU: *resp.DistanceAU,
	}, nil
}

func (p *Provider) fetch(ctx context.Context, body ephemeris.Body, instant time.Time) ([]byte, error) {
	u := *p.base
	u.Path = u.Path + "/v1/positions/" + strings.ToLower(body.String())
	q := url.Values{}
	q.Set("instant", instant.Format(time.RFC3339))
	q.Set("frame", p.config.Frame)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &guards.ProviderError{Provider: providerName, Message: fmt.Sprintf("request failed: %v", err), Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &guards.ProviderError{Provider: providerName, Message: fmt.Sprintf("read body: %v", err), Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &guards.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Retryable:  guards.RetryableStatus(resp.StatusCode),
		}
	}
	return data, nil
}
