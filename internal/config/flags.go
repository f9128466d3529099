package config

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/sawpanic/astrorun/internal/providers/analytic"
)

// Flags holds command-line overrides. Only flags the user set are applied,
// so they win over file and environment values without clobbering them.
type Flags struct {
	fs *pflag.FlagSet

	host        string
	port        int
	provider    string
	frame       string
	concurrency int
	remoteURL   string
	redisAddr   string
	logLevel    string
	logFormat   string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.host, "host", "", "HTTP listen host")
	fs.IntVar(&f.port, "port", 0, "HTTP listen port")
	fs.StringVar(&f.provider, "provider", "", "ephemeris provider (analytic or remote)")
	fs.StringVar(&f.frame, "frame", "", "ephemeris frame (heliocentric or geocentric)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "bodies evaluated at once")
	fs.StringVar(&f.remoteURL, "remote-url", "", "remote ephemeris base URL")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "redis address for the provider cache")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format (auto, console, json)")
	return f
}

// Apply copies every flag the user set into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.changed("host") {
		cfg.Server.Host = f.host
	}
	if f.changed("port") {
		cfg.Server.Port = f.port
	}
	if f.changed("provider") {
		cfg.Ephemeris.Provider = strings.ToLower(f.provider)
	}
	if f.changed("frame") {
		cfg.Ephemeris.Frame = analytic.Frame(strings.ToLower(f.frame))
	}
	if f.changed("concurrency") {
		cfg.Ephemeris.Concurrency = f.concurrency
	}
	if f.changed("remote-url") {
		cfg.Providers.Remote.BaseURL = f.remoteURL
	}
	if f.changed("redis-addr") {
		cfg.Cache.RedisAddr = f.redisAddr
	}
	if f.changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
}

func (f *Flags) changed(name string) bool {
	fl := f.fs.Lookup(name)
	return fl != nil && fl.Changed
}
