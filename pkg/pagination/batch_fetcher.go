package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parldok_pages_total",
		Help: "Total fetched result pages by outcome",
	}, []string{"outcome"})

	pageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parldok_page_fetch_duration_seconds",
		Help:    "Duration of a single page fetch including extraction",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	pagesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parldok_pages_in_flight",
		Help: "Page fetches currently holding a pool permit",
	})
)

// DefaultMaxPages is the default page cap of a run.
const DefaultMaxPages = 1000

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of page fetches in flight.
	MaxConcurrency int `yaml:"max_concurrency"`

	// PageTimeout bounds a single page fetch. Zero leaves the deadline to
	// the HTTP transport.
	PageTimeout time.Duration `yaml:"page_timeout"`

	// ProgressEvery logs progress after every n settled pages.
	ProgressEvery int `yaml:"progress_every"`

	// MaxPages caps the pages of one run, the first page included. The
	// page count comes from the upstream banner. Zero means no cap.
	MaxPages int `yaml:"max_pages"`
}

// DefaultConfig returns the default configuration: 30 fetches in flight,
// no per-page deadline, at most 1000 pages.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 30,
		ProgressEvery:  50,
		MaxPages:       DefaultMaxPages,
	}
}

// Page is one page to fetch.
type Page struct {
	Number int
	URL    string
}

// Pages numbers urls consecutively starting at first.
func Pages(urls []string, first int) []Page {
	pages := make([]Page, len(urls))
	for i, u := range urls {
		pages[i] = Page{Number: first + i, URL: u}
	}
	return pages
}

// PageFetcher fetches and decodes a single page.
type PageFetcher[R any] interface {
	FetchPage(ctx context.Context, pageURL string) (R, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[R any] func(ctx context.Context, pageURL string) (R, error)

// FetchPage calls f.
func (f PageFetcherFunc[R]) FetchPage(ctx context.Context, pageURL string) (R, error) {
	return f(ctx, pageURL)
}

// PageResult represents the result of fetching a single page
type PageResult[R any] struct {
	Page  Page
	Value R
	Err   error
}

// OK reports whether the page was fetched successfully.
func (r PageResult[R]) OK() bool {
	return r.Err == nil
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher[R any] struct {
	fetcher PageFetcher[R]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[R any](fetcher PageFetcher[R], config Config) *BatchFetcher[R] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 30
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 50
	}

	return &BatchFetcher[R]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page with at most MaxConcurrency in flight and
// returns one result per page, in the order of pages. A failed page never
// cancels its siblings.
func (bf *BatchFetcher[R]) FetchAll(ctx context.Context, pages []Page) []PageResult[R] {
	if len(pages) == 0 {
		return nil
	}
	start := time.Now()

	log.Info().
		Int("pages", len(pages)).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	pool := NewPool[R](bf.config.MaxConcurrency)
	progress := make(chan struct{}, len(pages))

	for _, page := range pages {
		pool.Submit(ctx, func(ctx context.Context) (R, error) {
			pagesInFlight.Inc()
			pageStart := time.Now()
			defer func() {
				pagesInFlight.Dec()
				pageDuration.Observe(time.Since(pageStart).Seconds())
				progress <- struct{}{}
			}()

			if bf.config.PageTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, bf.config.PageTimeout)
				defer cancel()
			}
			return bf.fetcher.FetchPage(ctx, page.URL)
		})
	}

	done := make(chan struct{})
	go func() {
		settled := 0
		for range progress {
			settled++
			if settled%bf.config.ProgressEvery == 0 {
				log.Info().
					Int("fetched", settled).
					Int("total", len(pages)).
					Float64("progress_pct", float64(settled)/float64(len(pages))*100).
					Msg("Fetch progress")
			}
		}
		close(done)
	}()

	settlements := pool.Wait()
	close(progress)
	<-done

	results := make([]PageResult[R], len(settlements))
	failed := 0
	for i, s := range settlements {
		results[i] = PageResult[R]{Page: pages[i], Value: s.Value, Err: s.Err}
		if !s.Fulfilled() {
			failed++
			pagesTotal.WithLabelValues("rejected").Inc()
			log.Warn().
				Err(s.Err).
				Int("page", pages[i].Number).
				Str("url", pages[i].URL).
				Msg("Page fetch failed")
			continue
		}
		pagesTotal.WithLabelValues("fulfilled").Inc()
	}

	log.Info().
		Int("pages", len(pages)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results
}
