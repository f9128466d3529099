package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/astrorun/internal/cache"
	"github.com/sawpanic/astrorun/internal/infrastructure/db"
	"github.com/sawpanic/astrorun/internal/providers/analytic"
	"github.com/sawpanic/astrorun/internal/providers/remote"
)

// DefaultPath is where the service looks for its config file.
const DefaultPath = "config/astrorun.yaml"

// Provider names accepted by ephemeris.provider.
const (
	ProviderAnalytic = "analytic"
	ProviderRemote   = "remote"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ephemeris EphemerisConfig `yaml:"ephemeris"`
	Providers ProvidersConfig `yaml:"providers"`
	Cache     cache.Config    `yaml:"cache"`
	Database  db.Config       `yaml:"database"`
	Stream    StreamConfig    `yaml:"stream"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EphemerisConfig selects the provider and how bodies are fanned out.
type EphemerisConfig struct {
	Provider    string         `yaml:"provider"`
	Frame       analytic.Frame `yaml:"frame"`
	Concurrency int            `yaml:"concurrency"`
	MinYear     int            `yaml:"min_year"`
	MaxYear     int            `yaml:"max_year"`
}

// Analytic returns the analytic provider settings.
func (e EphemerisConfig) Analytic() analytic.Config {
	return analytic.Config{Frame: e.Frame, MinYear: e.MinYear, MaxYear: e.MaxYear}
}

// Remote returns the remote provider settings with the frame taken from
// ephemeris.frame, so both providers answer in the same frame.
func (c *Config) Remote() remote.Config {
	r := c.Providers.Remote
	r.Frame = string(c.Ephemeris.Frame)
	return r
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Remote remote.Config `yaml:"remote"`
}

// StreamConfig controls the live websocket feed.
type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// Default returns a configuration that runs the analytic provider on
// localhost:8080 with in-memory charts.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ephemeris: EphemerisConfig{
			Provider:    ProviderAnalytic,
			Frame:       analytic.Heliocentric,
			Concurrency: 1,
			MinYear:     analytic.DefaultConfig().MinYear,
			MaxYear:     analytic.DefaultConfig().MaxYear,
		},
		Providers: ProvidersConfig{
			Remote: remote.Config{
				Timeout: 10 * time.Second,
				RPS:     5,
				Burst:   10,
				TTL:     24 * time.Hour,
				Circuit: remote.CircuitConfig{
					FailureThreshold: 3,
					OpenTimeout:      30 * time.Second,
				},
			},
		},
		Cache: cache.Config{
			Prefix:  "astrorun:",
			Timeout: 500 * time.Millisecond,
		},
		Database: db.DefaultConfig(),
		Stream:   StreamConfig{Interval: 10 * time.Second},
		Log:      LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file leaves the defaults in place. Callers validate after flags
// are applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies the supported environment overrides.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("ASTRORUN_PROVIDER"); v != "" {
		c.Ephemeris.Provider = strings.ToLower(v)
	}
	if v := getenv("EPHEMERIS_API_KEY"); v != "" {
		c.Providers.Remote.APIKey = v
	}
	if v := getenv("EPHEMERIS_BASE_URL"); v != "" {
		c.Providers.Remote.BaseURL = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv("PG_DSN"); v != "" {
		c.Database.DSN = v
		c.Database.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Ephemeris.Frame {
	case analytic.Heliocentric, analytic.Geocentric, "":
	default:
		return fmt.Errorf("ephemeris: unknown frame %q", c.Ephemeris.Frame)
	}

	switch c.Ephemeris.Provider {
	case ProviderAnalytic:
		if _, err := analytic.New(c.Ephemeris.Analytic()); err != nil {
			return fmt.Errorf("ephemeris: %w", err)
		}
	case ProviderRemote:
		if c.Providers.Remote.BaseURL == "" {
			return fmt.Errorf("providers.remote.base_url is required for the remote provider")
		}
	default:
		return fmt.Errorf("unknown ephemeris provider %q (want %s or %s)",
			c.Ephemeris.Provider, ProviderAnalytic, ProviderRemote)
	}
	if c.Ephemeris.Concurrency < 1 || c.Ephemeris.Concurrency > 10 {
		return fmt.Errorf("ephemeris concurrency must be between 1 and 10, got %d", c.Ephemeris.Concurrency)
	}

	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required when enabled")
	}
	if c.Stream.Interval <= 0 {
		return fmt.Errorf("stream interval must be positive, got %s", c.Stream.Interval)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log format must be auto, console or json, got %q", c.Log.Format)
	}
	return nil
}
