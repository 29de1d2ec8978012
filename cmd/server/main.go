package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"caretrack/internal/audit"
	auditpg "caretrack/internal/audit/store/postgres"
	"caretrack/internal/geocode"
	"caretrack/internal/location"
	locationHandler "caretrack/internal/location/handler"
	"caretrack/internal/platform/config"
	"caretrack/internal/platform/httpserver"
	"caretrack/internal/platform/logger"
	"caretrack/internal/platform/metrics"
	platformpg "caretrack/internal/platform/postgres"
	platformredis "caretrack/internal/platform/redis"
	"caretrack/internal/ratelimit"
	httptransport "caretrack/internal/transport/http"
	"caretrack/internal/visit"
	visitHandler "caretrack/internal/visit/handler"
	"caretrack/internal/visit/service"
	visitpg "caretrack/internal/visit/store/postgres"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var (
		store visit.Store
		db    *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = platformpg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		pgStore := visitpg.New(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		store = pgStore
		log.Info("using postgres visit store")
	} else {
		store = visit.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, visit records are held in memory")
	}

	var redisClient *goredis.Client
	if rc, err := platformredis.New(ctx, cfg.RedisURL); err != nil {
		return err
	} else if rc != nil {
		redisClient = rc.Client
		defer redisClient.Close()
	}

	var resolver geocode.Resolver = geocode.FallbackResolver{}
	if cfg.GeocodeBaseURL != "" {
		resolver = geocode.NewHTTPResolver(cfg.GeocodeBaseURL, log)
	}
	if redisClient != nil {
		resolver = geocode.NewCachedResolver(resolver, redisClient, log)
	}

	var producer *audit.Producer
	if len(cfg.KafkaBrokers) > 0 {
		var err error
		producer, err = audit.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		log.Info("audit events mirrored to kafka", "topic", cfg.KafkaTopic)
	}

	publisher := audit.NewPublisher(256, log)
	var auditStore audit.Store
	if db != nil {
		pgAudit := auditpg.New(db)
		if err := pgAudit.Migrate(ctx); err != nil {
			return err
		}
		auditStore = pgAudit
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	worker := audit.NewWorker(auditStore, producer, publisher.Inbox(), log)

	feed := location.NewFeed()

	var limiter *ratelimit.SlidingWindow
	if cfg.DeviceReportLimit > 0 {
		limiter = ratelimit.NewSlidingWindow(cfg.DeviceReportLimit, time.Minute)
	}

	visits := service.New(store, feed, resolver, publisher, m, log, service.Options{
		Policy:          cfg.ProximityPolicy,
		LocationOptions: cfg.LocationTier,
	})

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Visits:    visitHandler.New(visits, log, m, cfg.ProximityTier),
		Locations: locationHandler.New(feed, log, m, limiter),
		Gatherer:  registry,
		DB:        db,
		Redis:     redisClient,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		log.Info("starting caretrack", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("caretrack stopped")
	return nil
}
