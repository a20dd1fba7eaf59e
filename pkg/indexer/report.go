package indexer

import (
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
)

// Report summarizes a finished run.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`

	Plan parldok.Plan `json:"plan"`

	// TokenFound and CookieFound describe the negotiated session.
	TokenFound  bool `json:"token_found"`
	CookieFound bool `json:"cookie_found"`

	PagesPlanned int `json:"pages_planned"`
	PagesFetched int `json:"pages_fetched"`
	PagesFailed  int `json:"pages_failed"`

	FirstPageRecords int `json:"first_page_records"`
	Records          int `json:"records"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Persistence is filled in by the caller after the handoff to a store.
	Persistence *Persistence `json:"persistence,omitempty"`

	Error string `json:"error,omitempty"`
}

// Persistence is the outcome of handing the records to a store.
type Persistence struct {
	Backend  string        `json:"backend"`
	Inserted int           `json:"inserted"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the run produced records.
func (r *Report) OK() bool {
	return r != nil && r.Error == "" && r.Records > 0
}
