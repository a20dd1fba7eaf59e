package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sternrassler/parldok-indexer/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the HTTP trigger that starts an indexing run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, service.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.redis != nil {
				if err := a.service.Ready(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("Redis not reachable - runs are not serialized until it is")
				} else {
					log.Info().Msg("Connected to Redis")
				}
			}

			srv := &http.Server{
				Addr:         cfg.Addr(),
				Handler:      newRouter(cmd.Context(), a.service),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("addr", srv.Addr).
					Str("endpoint", cfg.Upstream.Endpoint).
					Str("store", a.store.Name()).
					Msg("Starting parldok indexer server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			log.Info().Msg("Shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
