package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "github.com/armieahmed7/halalcities-sub003/internal/adapters/http_server"
	"github.com/armieahmed7/halalcities-sub003/internal/adapters/observability"
	redisad "github.com/armieahmed7/halalcities-sub003/internal/adapters/redis"
	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
	"github.com/armieahmed7/halalcities-sub003/internal/shared"
	mysqlrepo "github.com/armieahmed7/halalcities-sub003/internal/storage/mysql"
	"github.com/armieahmed7/halalcities-sub003/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db is opened only when something needs it
	var repo *mysqlrepo.Repo
	if cfg.CatalogSource == "mysql" || cfg.TrackingStore == "mysql" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		repo = mysqlrepo.New(db)
	}

	// catalog snapshot, immutable for the life of the process
	var snap *catalog.Snapshot
	var err error
	if cfg.CatalogSource == "mysql" {
		snap, err = catalog.LoadSource(ctx, repo)
	} else {
		snap, err = catalog.LoadFile(cfg.CatalogPath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.CatalogSource).Msg("catalog load failed")
	}
	observability.SetCatalogSize("cities", snap.Len())
	observability.SetCatalogSize("listings", len(snap.Listings()))
	log.Info().Str("version", snap.Version()).Int("cities", snap.Len()).Msg("catalog loaded")

	// redis backs the query cache and, optionally, the live counters
	var cache domain.Cache
	var rc *redisad.Cache
	if cfg.CacheTTL > 0 || cfg.TrackingStore == "redis" {
		rc = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, continuing")
		}
		cache = rc
	}

	var store domain.TrackingStore
	switch cfg.TrackingStore {
	case "redis":
		store = redisad.NewTrackingStore(rc.Client())
	case "mysql":
		store = repo
	}

	tracker := app.NewTracker(store, cfg.TrackingWorkers, cfg.TrackingTimeout)
	q := app.NewQueryService(snap, cache, cfg.CacheTTL, cfg.QueryMaxLimit)
	listings := app.NewListingService(snap, store, time.Now)

	// http
	srv := server.New(server.Options{CORSOrigins: cfg.CORSOrigins})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, L: listings, T: tracker, V: validation.New()})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	tracker.Close()
	log.Info().Msg("bye")
}
