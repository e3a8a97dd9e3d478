package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/api"
	"github.com/voyagen/darteve/internal/aggregator"
	"github.com/voyagen/darteve/internal/cache"
	"github.com/voyagen/darteve/internal/config"
	"github.com/voyagen/darteve/internal/fetcher"
	"github.com/voyagen/darteve/internal/logging"
	"github.com/voyagen/darteve/internal/player"
	"github.com/voyagen/darteve/internal/radio"
	"github.com/voyagen/darteve/internal/server"
	"github.com/voyagen/darteve/internal/service"
	"github.com/voyagen/darteve/internal/store"
	"github.com/voyagen/darteve/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("darteve")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.ExporterType(cfg.TracingExporter))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	spec, err := api.Load(ctx)
	if err != nil {
		return err
	}

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Msg("redis connected (shared cache and refresh queue enabled)")
	} else {
		log.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	kv, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	var appStore store.Store = kv
	if rds != nil {
		appStore = store.NewCachedStore(kv, rds)
	}

	client := fetcher.New(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		ProxyURL:  cfg.ProxyURL,
		ProxyRate: cfg.ProxyRate,
	})

	catalog := service.New(service.Options{
		Fetcher:     client,
		Store:       appStore,
		Aggregator:  aggregator.New(client, cfg.Sources, cfg.Timeout),
		Redis:       rds,
		CacheTTL:    cfg.CacheTTL,
		PlaylistURL: cfg.PlaylistURL,
		MasterURL:   cfg.MasterURL,
		Extra:       cfg.Categories,
	})
	// A failed initial load is not fatal; categories resolve on demand and
	// /api/refresh can retry.
	if err := catalog.Load(ctx); err != nil {
		log.Error().Err(err).Msg("initial load")
	}
	go catalog.RunWorker(ctx)

	ladder, err := player.Ladder(cfg.Engines, client)
	if err != nil {
		return fmt.Errorf("engines: %w", err)
	}
	players := player.NewManager(player.ManagerOptions{
		Ladder:          ladder,
		FallbackTimeout: cfg.FallbackTimeout,
		MaxRecoveries:   cfg.MaxRecoveries,
	})

	srv := server.New(cfg, server.Deps{
		Catalog: catalog,
		Players: players,
		Radio:   radio.NewDirectory(client, cfg.RadioURL, rds),
		Spec:    spec,
	})
	return srv.ListenAndServe(ctx)
}

// openStore picks Postgres when DATABASE_URL is set and the local SQLite
// file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		s, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return s, nil
	}
	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	log.Info().Msg("using postgres store")
	return pg, nil
}
