package indexer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stages a diagnostic can originate from.
const (
	StageSession = "session"
	StagePlan    = "plan"
	StageFetch   = "fetch"
	StageResult  = "result"
	StageStore   = "store"
)

// Diagnostic is a degraded path taken during a run.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Page    int    `json:"page,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Run is the state of a single indexing run. It is created at the start of
// a run and handed back inside the Report.
type Run struct {
	ID        string
	StartedAt time.Time

	logger zerolog.Logger

	mu          sync.Mutex
	diagnostics []Diagnostic
}

// NewRun starts a run with a fresh id.
func NewRun() *Run {
	id := uuid.NewString()
	return &Run{
		ID:        id,
		StartedAt: time.Now(),
		logger:    log.With().Str("component", "indexer").Str("run_id", id).Logger(),
	}
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() *zerolog.Logger {
	return &r.logger
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.StartedAt)
}

// Warn records d and logs it at warn level.
func (r *Run) Warn(d Diagnostic) {
	r.mu.Lock()
	r.diagnostics = append(r.diagnostics, d)
	r.mu.Unlock()

	event := r.logger.Warn().Str("stage", d.Stage)
	if d.URL != "" {
		event = event.Str("url", d.URL)
	}
	if d.Page > 0 {
		event = event.Int("page", d.Page)
	}
	if d.Error != "" {
		event = event.Str("error", d.Error)
	}
	event.Msg(d.Message)
}

// Diagnostics returns a copy of the recorded diagnostics.
func (r *Run) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
