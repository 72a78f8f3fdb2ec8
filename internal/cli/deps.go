package cli

import (
	"github.com/ppiankov/acmap/internal/cache"
	"github.com/ppiankov/acmap/internal/client"
	"github.com/ppiankov/acmap/internal/database"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/store"
	"github.com/ppiankov/acmap/internal/worker"
	"go.uber.org/zap"
)

// newClient wires the API client with its rate limiter and response cache
func newClient(cfg *model.Config, log *zap.Logger) *client.Client {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	return client.NewClient(cfg.API, limiter, cache.New(cfg.Cache), log)
}

// newUncachedClient wires a client that always reaches the API, for
// callers that must not persist a cached body as fresh data
func newUncachedClient(cfg *model.Config, log *zap.Logger) *client.Client {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	return client.NewClient(cfg.API, limiter, cache.Nop{}, log)
}

// newStore builds the accident store. With the snapshot enabled, the sqlite
// snapshot is consulted when the API fails. The returned func releases the
// snapshot database.
func newStore(cfg *model.Config, log *zap.Logger) (*store.Store, func(), error) {
	api := newClient(cfg, log)
	if !cfg.Snapshot.Enabled {
		return store.New(api, log), func() {}, nil
	}

	db, err := database.New(cfg.Snapshot.Path)
	if err != nil {
		return nil, nil, err
	}

	source := store.NewFallbackSource(log,
		store.NamedSource{Name: "api", Source: api},
		store.NamedSource{Name: "snapshot", Source: db},
	)
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close snapshot database", zap.Error(err))
		}
	}
	return store.New(source, log), closeDB, nil
}
