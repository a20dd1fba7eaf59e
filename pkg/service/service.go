// Package service wires one indexing run to persistence and run state. It is
// what the HTTP trigger and the run command call.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/indexer"
	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/Sternrassler/parldok-indexer/pkg/runstate"
	"github.com/Sternrassler/parldok-indexer/pkg/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned by Trigger while another run holds the run lock.
var ErrBusy = errors.New("run in progress")

// Runner executes one indexing run. *indexer.Indexer implements it.
type Runner interface {
	Run(ctx context.Context) ([]parldok.Record, *indexer.Report, error)
}

// StateStore keeps the run lock and the last report. *runstate.Manager
// implements it.
type StateStore interface {
	AcquireLock(ctx context.Context) (*runstate.Lock, error)
	SaveReport(ctx context.Context, report any) error
	LastReport(ctx context.Context) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// Options configures a Service.
type Options struct {
	// DryRun skips persistence.
	DryRun bool
}

// Service runs the indexer and hands its records to the store.
type Service struct {
	runner Runner
	store  store.Store
	state  StateStore
	opts   Options
	logger zerolog.Logger
}

// New creates a service. state may be nil, in which case runs are not
// serialized and no report is kept.
func New(runner Runner, st store.Store, state StateStore, opts Options) *Service {
	if st == nil {
		st = store.Discard{}
	}
	return &Service{
		runner: runner,
		store:  st,
		state:  state,
		opts:   opts,
		logger: log.With().Str("component", "service").Logger(),
	}
}

// Result is what a triggered run produced.
type Result struct {
	Records []parldok.Record
	Report  *indexer.Report
}

// Trigger performs one complete run: take the run lock, scrape, persist the
// records on behalf of the caller identified by authorization, and store
// the report. It returns ErrBusy when a run is already in progress and
// indexer.ErrNoData when nothing was extracted; persistence failures are
// only logged and recorded in the report.
func (s *Service) Trigger(ctx context.Context, authorization string) (*Result, error) {
	start := time.Now()

	if s.state != nil {
		lock, err := s.state.AcquireLock(ctx)
		switch {
		case errors.Is(err, runstate.ErrLocked):
			s.logger.Warn().Msg("Trigger rejected - run already in progress")
			return nil, ErrBusy
		case err != nil:
			s.logger.Warn().Err(err).Msg("Run lock unavailable - continuing without lock")
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to release run lock")
				}
			}()
		}
	}

	records, report, runErr := s.runner.Run(ctx)
	result := &Result{Records: records, Report: report}

	if runErr == nil && !s.opts.DryRun {
		s.persist(ctx, authorization, start, records, report)
	}

	if s.state != nil && report != nil {
		if err := s.state.SaveReport(context.WithoutCancel(ctx), report); err != nil {
			s.logger.Warn().Err(err).Str("run_id", report.RunID).Msg("Failed to save run report")
		}
	}

	return result, runErr
}

func (s *Service) persist(ctx context.Context, authorization string, start time.Time, records []parldok.Record, report *indexer.Report) {
	outcome := store.Persist(store.WithAuthorization(ctx, authorization), s.store, records)

	logger := s.logger.With().Str("backend", outcome.Backend).Logger()
	if report != nil {
		report.Persistence = &indexer.Persistence{
			Backend:  outcome.Backend,
			Inserted: outcome.Inserted,
			Failed:   outcome.Failed,
			Errors:   outcome.Errors,
			Duration: outcome.Duration,
		}
		logger = logger.With().Str("run_id", report.RunID).Logger()
	}

	if !outcome.OK() {
		logger.Error().
			Int("inserted", outcome.Inserted).
			Int("failed", outcome.Failed).
			Strs("errors", outcome.Errors).
			Msg("Persisting records failed")
		return
	}

	logger.Info().
		Int("records", outcome.Inserted).
		Dur("duration", time.Since(start)).
		Msg("index created")
}

// LastReport returns the report of the most recent run as JSON.
// Returns runstate.ErrNoReport when no state store is configured.
func (s *Service) LastReport(ctx context.Context) (json.RawMessage, error) {
	if s.state == nil {
		return nil, runstate.ErrNoReport
	}
	return s.state.LastReport(ctx)
}

// Ready reports whether the service's dependencies are reachable.
func (s *Service) Ready(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	return s.state.Ping(ctx)
}
