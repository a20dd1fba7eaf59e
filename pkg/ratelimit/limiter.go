// Package ratelimit paces requests to the upstream document service.
//
// Two mechanisms are combined: a token bucket (golang.org/x/time/rate) that
// caps the steady request rate, and a pause window that is opened when the
// upstream answers 429 or 503 with a Retry-After header. While the window
// is open every caller of Wait blocks until it closes or its context ends.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for upstream pacing.
var (
	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parldok_ratelimit_wait_seconds",
		Help:    "Time requests spent waiting for the upstream rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	pausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parldok_ratelimit_pauses_total",
		Help: "Total number of pause windows opened by Retry-After responses",
	})
)

// MaxPause caps the pause window opened by a single Retry-After header.
const MaxPause = 2 * time.Minute

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond is the steady request rate. <= 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size. Values < 1 are raised to 1.
	Burst int `yaml:"burst"`
}

// Limiter gates requests to the upstream service.
type Limiter struct {
	bucket *rate.Limiter
	logger zerolog.Logger

	mu         sync.Mutex
	pauseUntil time.Time
}

// New creates a limiter. A zero Config yields an unlimited limiter that
// still honours Retry-After pauses.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		logger: logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		waitSeconds.Observe(time.Since(start).Seconds())
	}()

	if pause := l.pauseRemaining(); pause > 0 {
		l.logger.Debug().Dur("pause", pause).Msg("Upstream pause active - waiting")
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.bucket.Wait(ctx)
}

// UpdateFromResponse opens a pause window when the upstream signals
// overload (429/503) with a Retry-After header in seconds or HTTP-date form.
func (l *Limiter) UpdateFromResponse(status int, headers http.Header) {
	if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
		return
	}

	pause, ok := parseRetryAfter(headers.Get("Retry-After"), time.Now())
	if !ok || pause <= 0 {
		return
	}
	if pause > MaxPause {
		pause = MaxPause
	}

	until := time.Now().Add(pause)

	l.mu.Lock()
	extended := until.After(l.pauseUntil)
	if extended {
		l.pauseUntil = until
	}
	l.mu.Unlock()

	if extended {
		pausesTotal.Inc()
		l.logger.Warn().
			Int("status", status).
			Dur("pause", pause).
			Msg("Upstream asked to back off - pausing requests")
	}
}

func (l *Limiter) pauseRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Until(l.pauseUntil)
}

// parseRetryAfter parses a Retry-After value relative to now.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now), true
	}
	return 0, false
}
