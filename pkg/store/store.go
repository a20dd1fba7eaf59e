// Package store persists extracted records.
//
// Records are handed to a Store one at a time. Persist walks the whole
// slice and reports what happened in an Outcome; a failed insert never
// stops the remaining ones.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Backend names accepted by Open.
const (
	BackendNone     = "none"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// maxOutcomeErrors caps how many error messages an Outcome keeps.
const maxOutcomeErrors = 10

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")

	// ErrInsertRejected indicates the backend answered but refused the record.
	ErrInsertRejected = errors.New("insert rejected")
)

var insertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parldok_store_inserts_total",
	Help: "Total record inserts by backend and result",
}, []string{"backend", "result"})

// Store persists single records.
type Store interface {
	Insert(ctx context.Context, rec parldok.Record) error
	Name() string
	Close() error
}

// Config selects and configures the backend.
type Config struct {
	Backend    string         `yaml:"backend"`
	SQLitePath string         `yaml:"sqlite_path"`
	Supabase   SupabaseConfig `yaml:"supabase"`
}

// DefaultConfig returns a configuration that discards records.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendNone,
		SQLitePath: "parldok.db",
		Supabase:   DefaultSupabaseConfig(),
	}
}

// Open creates the store selected by cfg.Backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Discard{}, nil
	case BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case BackendSupabase:
		return NewSupabase(cfg.Supabase)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Outcome is the result of handing a batch of records to a store.
type Outcome struct {
	Backend  string
	Inserted int
	Failed   int

	// Errors holds the first few insert errors.
	Errors   []string
	Duration time.Duration
}

// OK reports whether every record was stored.
func (o Outcome) OK() bool {
	return o.Failed == 0
}

// Persist inserts records one at a time and returns the outcome. Failures
// are logged and counted; they never abort the remaining inserts. A done
// context fails the remaining records without calling the store.
func Persist(ctx context.Context, s Store, records []parldok.Record) Outcome {
	start := time.Now()
	outcome := Outcome{Backend: s.Name()}

	for _, rec := range records {
		err := ctx.Err()
		if err == nil {
			err = s.Insert(ctx, rec)
		}
		if err != nil {
			outcome.Failed++
			if len(outcome.Errors) < maxOutcomeErrors {
				outcome.Errors = append(outcome.Errors, err.Error())
			}
			insertsTotal.WithLabelValues(s.Name(), "error").Inc()
			log.Debug().Err(err).Str("backend", s.Name()).Str("reference", rec.Reference).Msg("Insert failed")
			continue
		}
		outcome.Inserted++
		insertsTotal.WithLabelValues(s.Name(), "ok").Inc()
	}

	outcome.Duration = time.Since(start)
	return outcome
}

// Discard drops every record.
type Discard struct{}

// Insert does nothing.
func (Discard) Insert(context.Context, parldok.Record) error { return nil }

// Name returns "none".
func (Discard) Name() string { return BackendNone }

// Close does nothing.
func (Discard) Close() error { return nil }

type authorizationKey struct{}

// WithAuthorization returns a context carrying the caller's Authorization
// header value, forwarded by stores that act on behalf of the caller.
func WithAuthorization(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, authorizationKey{}, value)
}

// AuthorizationFrom returns the Authorization value stored in ctx, or "".
func AuthorizationFrom(ctx context.Context) string {
	v, _ := ctx.Value(authorizationKey{}).(string)
	return v
}
