package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/parldok-indexer/pkg/client"
	"github.com/Sternrassler/parldok-indexer/pkg/config"
	"github.com/Sternrassler/parldok-indexer/pkg/indexer"
	"github.com/Sternrassler/parldok-indexer/pkg/runstate"
	"github.com/Sternrassler/parldok-indexer/pkg/service"
	"github.com/Sternrassler/parldok-indexer/pkg/store"
	"github.com/redis/go-redis/v9"
)

// app holds the assembled dependencies of a command.
type app struct {
	service *service.Service
	store   store.Store
	redis   *redis.Client
}

func newApp(cfg config.Config, opts service.Options) (*app, error) {
	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	ix := indexer.New(c, cfg.IndexerConfig())

	storeCfg := cfg.Store
	if opts.DryRun {
		storeCfg.Backend = store.BackendNone
	}
	st, err := store.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{store: st}

	var state service.StateStore
	if cfg.Redis.URL != "" {
		a.redis, err = newRedisClient(cfg.Redis.URL)
		if err != nil {
			st.Close()
			return nil, err
		}
		state = runstate.NewManager(a.redis, cfg.Redis.RunState)
	}

	a.service = service.New(ix, st, state, opts)
	return a, nil
}

// Close releases the store and the Redis connection.
func (a *app) Close() error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %v", errs)
	}
	return nil
}

// newRedisClient accepts a redis:// URL or a plain host:port address.
func newRedisClient(raw string) (*redis.Client, error) {
	if !strings.Contains(raw, "://") {
		return redis.NewClient(&redis.Options{Addr: raw}), nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
