package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/go-resty/resty/v2"
)

// SupabaseConfig configures the Supabase (PostgREST) backend.
type SupabaseConfig struct {
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anon_key"`
	Table   string        `yaml:"table"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultSupabaseConfig returns the table and timeout defaults.
func DefaultSupabaseConfig() SupabaseConfig {
	return SupabaseConfig{
		Table:   "index",
		Timeout: 30 * time.Second,
	}
}

// Supabase inserts records into a table through the PostgREST API.
type Supabase struct {
	client *resty.Client
	config SupabaseConfig
}

// NewSupabase creates a Supabase store.
func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase url and anon key are required")
	}
	if u, err := url.Parse(cfg.URL); err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("supabase url must be absolute (got %q)", cfg.URL)
	}
	if cfg.Table == "" {
		cfg.Table = "index"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.URL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("apikey", cfg.AnonKey)
	client.SetHeader("content-type", "application/json")

	return &Supabase{client: client, config: cfg}, nil
}

// Name returns "supabase".
func (s *Supabase) Name() string { return BackendSupabase }

// Insert posts rec as one row. The caller's Authorization from ctx is
// forwarded so row-level security applies to the caller; without one the
// anon key is used.
func (s *Supabase) Insert(ctx context.Context, rec parldok.Record) error {
	auth := AuthorizationFrom(ctx)
	if auth == "" {
		auth = "Bearer " + s.config.AnonKey
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("authorization", auth).
		SetHeader("prefer", "return=minimal").
		SetBody(rec).
		Post("/rest/v1/" + url.PathEscape(s.config.Table))
	if err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: supabase status %d: %s", ErrInsertRejected, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return nil
}

// Close does nothing; the HTTP client holds no resources worth releasing.
func (s *Supabase) Close() error { return nil }
