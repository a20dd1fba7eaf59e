// Package indexer runs the scraping pipeline: negotiate a session, post the
// filter, plan the remaining pages from the result-count banner, fetch them
// concurrently and aggregate the extracted records.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/client"
	"github.com/Sternrassler/parldok-indexer/pkg/htmldoc"
	"github.com/Sternrassler/parldok-indexer/pkg/pagination"
	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNoData is returned when a run extracted no records at all.
var ErrNoData = errors.New("no data found")

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parldok_runs_total",
		Help: "Total indexing runs by result",
	}, []string{"result"})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parldok_records_extracted_total",
		Help: "Total records extracted across all runs",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parldok_run_duration_seconds",
		Help:    "Duration of an indexing run up to aggregation",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})
)

// Upstream is the part of the document service client a run needs.
// *client.Client implements it.
type Upstream interface {
	Endpoint() string
	Negotiate(ctx context.Context) (parldok.Session, error)
	NewListRequest(session parldok.Session, filter parldok.Filter) client.ListRequest
	Fetch(ctx context.Context, lr client.ListRequest, target string) (htmldoc.Node, error)
}

// Config holds the indexer configuration.
type Config struct {
	Filter parldok.Filter
	Fetch  pagination.Config
}

// DefaultConfig returns the filter and fetch settings of scheduled runs.
func DefaultConfig() Config {
	return Config{
		Filter: parldok.DefaultFilter(),
		Fetch:  pagination.DefaultConfig(),
	}
}

// Indexer runs the scraping pipeline against an upstream.
type Indexer struct {
	upstream Upstream
	config   Config
}

// New creates an indexer.
func New(upstream Upstream, cfg Config) *Indexer {
	return &Indexer{upstream: upstream, config: cfg}
}

// Run executes one indexing run. It returns the aggregated records, first
// page first, and the run report. Upstream irregularities degrade the run
// and are recorded as diagnostics; the only errors returned are ErrNoData
// and the context error when ctx ends before any record was extracted.
func (ix *Indexer) Run(ctx context.Context) ([]parldok.Record, *Report, error) {
	run := NewRun()
	logger := run.Logger()
	endpoint := ix.upstream.Endpoint()

	logger.Info().Str("url", endpoint).Msg("Starting indexing run")

	session := ix.negotiate(ctx, run)
	lr := ix.upstream.NewListRequest(session, ix.config.Filter)

	first, plan := ix.plan(ctx, run, lr, endpoint)
	if capped, ok := plan.Capped(ix.config.Fetch.MaxPages); ok {
		run.Warn(Diagnostic{
			Stage:   StagePlan,
			Message: fmt.Sprintf("Banner announces %d pages - fetching the first %d only", plan.TotalPages, capped.TotalPages),
			URL:     endpoint,
			Page:    1,
		})
		plan = capped
	}

	logger.Info().
		Int("documents", plan.Overall).
		Int("pages", plan.TotalPages).
		Int("records", len(first)).
		Msgf("Found %d documents on %d pages", plan.Overall, plan.TotalPages)

	pages := pagination.Pages(plan.PageURLs(endpoint), 2)
	fetcher := pagination.NewBatchFetcher[[]parldok.Record](pageFetcher{upstream: ix.upstream, lr: lr}, ix.config.Fetch)
	results := fetcher.FetchAll(ctx, pages)

	failed := 0
	for _, r := range results {
		if r.OK() {
			continue
		}
		failed++
		run.Warn(Diagnostic{
			Stage:   StageFetch,
			Message: "Page fetch failed",
			URL:     r.Page.URL,
			Page:    r.Page.Number,
			Error:   r.Err.Error(),
		})
	}

	records := Aggregate(first, results)

	report := &Report{
		RunID:            run.ID,
		StartedAt:        run.StartedAt,
		Plan:             plan,
		TokenFound:       session.HasToken(),
		CookieFound:      session.HasCookie(),
		PagesPlanned:     len(pages),
		PagesFetched:     len(pages) - failed,
		PagesFailed:      failed,
		FirstPageRecords: len(first),
		Records:          len(records),
	}

	finish := func(err error) ([]parldok.Record, *Report, error) {
		report.FinishedAt = time.Now()
		report.Duration = run.Elapsed()
		report.Diagnostics = run.Diagnostics()
		runDuration.Observe(report.Duration.Seconds())
		if err != nil {
			report.Error = err.Error()
			runsTotal.WithLabelValues("error").Inc()
			return nil, report, err
		}
		runsTotal.WithLabelValues("ok").Inc()
		recordsTotal.Add(float64(len(records)))
		return records, report, nil
	}

	if len(records) == 0 {
		if err := ctx.Err(); err != nil {
			logger.Error().Err(err).Msg("Run cancelled before any record was extracted")
			return finish(fmt.Errorf("run %s: %w", run.ID, err))
		}
		run.Warn(Diagnostic{Stage: StageResult, Message: "No records extracted"})
		logger.Error().
			Int("pages_planned", len(pages)).
			Int("pages_failed", failed).
			Msg(ErrNoData.Error())
		return finish(ErrNoData)
	}

	logger.Info().
		Int("records", len(records)).
		Int("pages_fetched", len(pages)-failed).
		Int("pages_failed", failed).
		Dur("duration", run.Elapsed()).
		Msg("Indexing run complete")

	return finish(nil)
}

// negotiate obtains the session. Every gap degrades to empty values. A
// failed exchange still yields whatever token and cookie its response
// carried.
func (ix *Indexer) negotiate(ctx context.Context, run *Run) parldok.Session {
	session, err := ix.upstream.Negotiate(ctx)
	if err != nil {
		run.Warn(Diagnostic{
			Stage:   StageSession,
			Message: "Session negotiation failed - continuing with what the response carried",
			URL:     ix.upstream.Endpoint(),
			Error:   err.Error(),
		})
		return session
	}
	if !session.HasToken() {
		run.Warn(Diagnostic{Stage: StageSession, Message: "No anti-forgery token on initial page"})
	}
	if !session.HasCookie() {
		run.Warn(Diagnostic{Stage: StageSession, Message: "No session cookie on initial page"})
	}
	return session
}

// plan posts the filter and returns the first page's records together with
// the pagination plan read from its banner.
func (ix *Indexer) plan(ctx context.Context, run *Run, lr client.ListRequest, endpoint string) ([]parldok.Record, parldok.Plan) {
	doc, err := ix.upstream.Fetch(ctx, lr, endpoint)
	if err != nil {
		run.Warn(Diagnostic{
			Stage:   StagePlan,
			Message: "List request failed",
			URL:     endpoint,
			Page:    1,
			Error:   err.Error(),
		})
		return nil, parldok.Plan{}
	}

	first := parldok.ExtractRecords(doc)
	banner := parldok.ResultCountText(doc)
	plan := parldok.ParseBanner(banner)
	if !plan.Matched {
		run.Warn(Diagnostic{
			Stage:   StagePlan,
			Message: fmt.Sprintf("Result count banner not recognized: %q", banner),
			URL:     endpoint,
			Page:    1,
		})
	}
	return first, plan
}

// Aggregate concatenates the first page's records with the records of every
// successful page result, in result order. Failed pages contribute nothing.
func Aggregate(first []parldok.Record, results []pagination.PageResult[[]parldok.Record]) []parldok.Record {
	n := len(first)
	for _, r := range results {
		if r.OK() {
			n += len(r.Value)
		}
	}

	records := make([]parldok.Record, 0, n)
	records = append(records, first...)
	for _, r := range results {
		if r.OK() {
			records = append(records, r.Value...)
		}
	}
	return records
}

// pageFetcher fetches a later page with the options of the list request and
// extracts its records.
type pageFetcher struct {
	upstream Upstream
	lr       client.ListRequest
}

func (f pageFetcher) FetchPage(ctx context.Context, pageURL string) ([]parldok.Record, error) {
	doc, err := f.upstream.Fetch(ctx, f.lr, pageURL)
	if err != nil {
		return nil, err
	}
	return parldok.ExtractRecords(doc), nil
}
