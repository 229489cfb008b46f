// Package app wires configuration into the running pipeline: store, cache,
// classifier and the two services. Both binaries start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"water-quality-api/classifier"
	"water-quality-api/config"
	"water-quality-api/handlers"
	"water-quality-api/rules"
	"water-quality-api/services"
	"water-quality-api/store"

	"github.com/gin-gonic/gin"
)

type App struct {
	Config     *config.Config
	Store      store.Store
	Cache      *services.CacheService
	Classifier *classifier.Model
	Ingest     *services.IngestionService
	Query      *services.QueryService

	backing store.Store
}

// New fails fast on anything the pipeline cannot run without: the classifier
// artifact and the reading store. Redis is optional and only logged when down.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	model, err := classifier.Load(cfg.Classifier.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	slog.Info("classifier loaded", "kind", model.Kind(), "version", model.Version())

	backing, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cache, err := services.NewCacheService(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, continuing without cache and live feed", "error", err)
	}

	var st store.Store = backing
	var opts []services.IngestionOption
	if cache.Available() {
		st = store.NewCached(backing, cache, cfg.Redis.CacheTTL, cfg.Database.Table)
		opts = append(opts, services.WithPublisher(cache, cfg.Redis.LiveChannel))
		slog.Info("redis connected", "cache_ttl", cfg.Redis.CacheTTL, "live_channel", cfg.Redis.LiveChannel)
	}

	return &App{
		Config:     cfg,
		Store:      st,
		Cache:      cache,
		Classifier: model,
		Ingest:     services.NewIngestionService(model, rules.New(), st, opts...),
		Query:      services.NewQueryService(st, cfg.History.DefaultLimit, cfg.History.MaxLimit),
		backing:    backing,
	}, nil
}

func openStore(ctx context.Context, db config.DatabaseConfig) (store.Store, error) {
	switch db.Driver {
	case "memory":
		slog.Warn("using in-memory reading store, data is lost on restart")
		return store.NewMemory(), nil
	case "postgres":
		slog.Info("connecting to postgres", "target", db.Redacted())
		return store.OpenPostgres(ctx, store.PostgresOptions{
			DSN:         db.GetDSN(),
			Table:       db.Table,
			Timeout:     db.Timeout,
			AutoMigrate: db.AutoMigrate,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.RouterDeps{
		Ingest:      a.Ingest,
		Query:       a.Query,
		Store:       a.Store,
		Live:        a.Cache,
		LiveChannel: a.Config.Redis.LiveChannel,
		CORS:        a.Config.CORS,
		Logger:      slog.Default(),
	})
}

func (a *App) Close() error {
	if err := a.Cache.Close(); err != nil {
		slog.Warn("redis close failed", "error", err)
	}
	return a.backing.Close()
}

// NewLogger builds the JSON logger both binaries install as the default.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
