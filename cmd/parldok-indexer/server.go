package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/parldok-indexer/pkg/indexer"
	"github.com/Sternrassler/parldok-indexer/pkg/logging"
	"github.com/Sternrassler/parldok-indexer/pkg/metrics"
	"github.com/Sternrassler/parldok-indexer/pkg/runstate"
	"github.com/Sternrassler/parldok-indexer/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// indexService is what the HTTP handlers need from *service.Service.
type indexService interface {
	Trigger(ctx context.Context, authorization string) (*service.Result, error)
	LastReport(ctx context.Context) (json.RawMessage, error)
	Ready(ctx context.Context) error
}

// newRouter builds the HTTP routes. base bounds the lifetime of triggered
// runs; cancelling it cancels them.
func newRouter(base context.Context, svc indexService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logging.NewLogger("server")))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(svc))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/runs/last", lastRunHandler(svc))

	trigger := triggerHandler(base, svc)
	r.Post("/indexer", trigger)
	r.Post("/functions/v1/indexer", trigger)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(svc indexService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := svc.Ready(ctx); err != nil {
			http.Error(w, fmt.Sprintf("Redis not ready: %v", err), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// triggerHandler runs the indexer and answers "done" once the run is over,
// whether or not it found data or persisted everything. The run outlives
// the caller's connection; only base cancels it.
func triggerHandler(base context.Context, svc indexService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeJSON(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()
		stop := context.AfterFunc(base, cancel)
		defer stop()

		_, err := svc.Trigger(ctx, auth)
		switch {
		case errors.Is(err, service.ErrBusy):
			writeJSON(w, http.StatusConflict, "busy")
			return
		case err != nil && !errors.Is(err, indexer.ErrNoData):
			log.Warn().Err(err).Msg("Indexing run ended with error")
		}

		writeJSON(w, http.StatusOK, "done")
	}
}

func lastRunHandler(svc indexService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := svc.LastReport(r.Context())
		switch {
		case errors.Is(err, runstate.ErrNoReport):
			writeJSON(w, http.StatusNotFound, "no run recorded")
			return
		case err != nil:
			log.Error().Err(err).Msg("Failed to load last run report")
			writeJSON(w, http.StatusInternalServerError, "failed to load report")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
