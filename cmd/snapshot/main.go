package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fortuna/felicitas/internal/cache"
	"github.com/fortuna/felicitas/internal/config"
	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/pipeline"
	"github.com/fortuna/felicitas/internal/publisher"
	"github.com/fortuna/felicitas/internal/service"
	"github.com/fortuna/felicitas/internal/store"
)

const (
	appName    = "felicitas-snapshot"
	appVersion = "1.0.0"
)

// One acquisition pass over the catalog, suitable for cron. Unreachable
// infrastructure is a warning, not a failure: the run must still produce
// the output file from whatever sources answered.
func main() {
	log.Printf("=== %s v%s ===", appName, appVersion)

	var (
		configPath = flag.String("config", "", "Path to config file (default: search ./config.yaml)")
		output     = flag.String("output", "", "Snapshot output path (overrides config)")
		skipStore  = flag.Bool("skip-store", false, "Skip Postgres and Redis, write the file only")
		printDoc   = flag.Bool("print", false, "Print the snapshot document to stdout")
	)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if *output != "" {
		cfg.Snapshot.OutputPath = *output
	}
	if *skipStore {
		cfg.DB.Disable = true
		cfg.Redis.Disable = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *store.Database
	if !cfg.DB.Disable {
		db, err = store.NewDatabase(cfg.DB.DSN)
		if err != nil {
			log.Printf("⚠️  Database unavailable: %v (continuing without history)", err)
		} else {
			defer db.Close()
			if err := db.RunMigrations(); err != nil {
				log.Printf("⚠️  Migrations failed: %v (continuing without history)", err)
				db.Close()
				db = nil
			}
		}
	}

	var redisCache *cache.RedisCache
	var redisPublisher *publisher.RedisStreamPublisher
	if !cfg.Redis.Disable {
		redisCache, err = cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v (continuing without cache)", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			redisPublisher = publisher.NewRedisStreamPublisher(redisCache.Client())
		}
	}

	plain := fetch.NewClient(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout,
	})
	pacer := fetch.NewPacer(cfg.Fetch.CourtesyDelay)

	var rendered pipeline.Fetcher
	if cfg.Fetch.EnableRenderer {
		rc := fetch.NewRenderedClient(cfg.Fetch.UserAgent)
		defer rc.Close()
		rendered = rc
	}

	runner := pipeline.NewRunner(plain, rendered, pacer)
	aggregator := pipeline.NewAggregator(runner)

	snapshots := service.NewSnapshotService(aggregator, game.Catalog, db, redisCache, redisPublisher, service.SnapshotConfig{
		OutputPath:  cfg.Snapshot.OutputPath,
		CacheTTL:    cfg.Snapshot.CacheTTL,
		HistoryKeep: cfg.Snapshot.HistoryKeep,
	})

	outcome, err := snapshots.Acquire(ctx, store.RunTriggerScheduled, nil)
	if err != nil {
		log.Fatalf("acquisition failed: %v", err)
	}

	if *printDoc {
		doc, err := outcome.Snapshot.Encode()
		if err != nil {
			log.Fatalf("encode snapshot: %v", err)
		}
		fmt.Println(string(doc))
	}

	if outcome.Status == store.RunStatusDegraded {
		log.Printf("⚠️  Snapshot written with %d/%d games resolved", outcome.Resolved, outcome.Total)
	} else {
		log.Printf("✓ Snapshot completed successfully (%d/%d games in %v)", outcome.Resolved, outcome.Total, outcome.Duration)
	}
}
