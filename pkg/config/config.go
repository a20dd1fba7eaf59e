// Package config loads the service configuration: defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/client"
	"github.com/Sternrassler/parldok-indexer/pkg/indexer"
	"github.com/Sternrassler/parldok-indexer/pkg/logging"
	"github.com/Sternrassler/parldok-indexer/pkg/pagination"
	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/Sternrassler/parldok-indexer/pkg/ratelimit"
	"github.com/Sternrassler/parldok-indexer/pkg/runstate"
	"github.com/Sternrassler/parldok-indexer/pkg/store"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig       `yaml:"server"`
	Upstream UpstreamConfig     `yaml:"upstream"`
	Filter   parldok.Filter     `yaml:"filter"`
	Fetch    pagination.Config  `yaml:"fetch"`
	Retry    client.RetryConfig `yaml:"retry"`
	Store    store.Config       `yaml:"store"`
	Redis    RedisConfig        `yaml:"redis"`
	Log      LogConfig          `yaml:"log"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig configures the document service client.
type UpstreamConfig struct {
	Endpoint     string           `yaml:"endpoint"`
	UserAgent    string           `yaml:"user_agent"`
	Timeout      time.Duration    `yaml:"timeout"`
	MaxBodyBytes int64            `yaml:"max_body_bytes"`
	RateLimit    ratelimit.Config `yaml:"rate_limit"`
}

// RedisConfig configures the optional run state store. An empty URL
// disables it.
type RedisConfig struct {
	URL      string          `yaml:"url"`
	RunState runstate.Config `yaml:"run_state"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	cc := client.DefaultConfig()
	// A run can take minutes; the trigger answers only when it is done.
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			Endpoint:     cc.Endpoint,
			UserAgent:    cc.UserAgent,
			Timeout:      cc.Timeout,
			MaxBodyBytes: cc.MaxBodyBytes,
		},
		Filter: parldok.DefaultFilter(),
		Fetch:  pagination.DefaultConfig(),
		Retry:  client.DefaultRetryConfig(),
		Store:  store.DefaultConfig(),
		Redis:  RedisConfig{RunState: runstate.DefaultConfig()},
		Log:    LogConfig{Level: string(logging.LevelInfo)},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays the settings found through getenv. Unset or empty
// variables leave the current value alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalid, v)
		}
		c.Server.Port = port
	}
	str("LOG_LEVEL", &c.Log.Level)
	if v := getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LOG_PRETTY=%q is not a boolean", ErrInvalid, v)
		}
		c.Log.Pretty = pretty
	}

	str("REDIS_URL", &c.Redis.URL)
	str("PARLDOK_ENDPOINT", &c.Upstream.Endpoint)
	if v := getenv("PARLDOK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PARLDOK_CONCURRENCY=%q is not a number", ErrInvalid, v)
		}
		c.Fetch.MaxConcurrency = n
	}

	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("SUPABASE_URL", &c.Store.Supabase.URL)
	str("SUPABASE_ANON_KEY", &c.Store.Supabase.AnonKey)
	str("SUPABASE_TABLE", &c.Store.Supabase.Table)

	backend := strings.TrimSpace(getenv("STORE_BACKEND"))
	switch {
	case backend != "":
		c.Store.Backend = backend
	case c.Store.Backend == store.BackendNone && c.Store.Supabase.URL != "" && c.Store.Supabase.AnonKey != "":
		// Supabase credentials alone select the Supabase backend.
		c.Store.Backend = store.BackendSupabase
	}

	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if u, err := url.Parse(c.Upstream.Endpoint); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream endpoint must be an absolute URL (got %q)", c.Upstream.Endpoint))
	}
	if c.Fetch.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch concurrency must be at least 1 (got %d)", c.Fetch.MaxConcurrency))
	}
	if c.Fetch.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("fetch max_pages must not be negative (got %d)", c.Fetch.MaxPages))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max_attempts must be at least 1 (got %d)", c.Retry.MaxAttempts))
	}

	switch c.Store.Backend {
	case "", store.BackendNone:
	case store.BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("sqlite backend needs a path"))
		}
	case store.BackendSupabase:
		if c.Store.Supabase.URL == "" || c.Store.Supabase.AnonKey == "" {
			errs = append(errs, fmt.Errorf("supabase backend needs SUPABASE_URL and SUPABASE_ANON_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ClientConfig returns the upstream client configuration.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		Endpoint:     c.Upstream.Endpoint,
		UserAgent:    c.Upstream.UserAgent,
		Timeout:      c.Upstream.Timeout,
		MaxBodyBytes: c.Upstream.MaxBodyBytes,
		RateLimit:    c.Upstream.RateLimit,
		Retry:        c.Retry,
	}
}

// IndexerConfig returns the indexer configuration.
func (c Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		Filter: c.Filter,
		Fetch:  c.Fetch,
	}
}

// LoggingConfig returns the logger configuration writing to stderr.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// Addr returns the listen address of the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
