package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/felicitas/internal/api/rest"
	"github.com/fortuna/felicitas/internal/api/websocket"
	"github.com/fortuna/felicitas/internal/cache"
	"github.com/fortuna/felicitas/internal/config"
	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/pipeline"
	"github.com/fortuna/felicitas/internal/publisher"
	"github.com/fortuna/felicitas/internal/refresh"
	"github.com/fortuna/felicitas/internal/scheduler"
	"github.com/fortuna/felicitas/internal/service"
	"github.com/fortuna/felicitas/internal/store"
)

const (
	serviceName    = "felicitas"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml)")
	flag.Parse()

	log.Printf("Starting %s v%s - Lottery Jackpot Service", serviceName, serviceVersion)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	var db *store.Database
	if cfg.DB.Disable {
		log.Println("⊘ Database disabled, snapshot history will not persist")
	} else {
		db, err = store.NewDatabase(cfg.DB.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		log.Println("✓ Connected to database")

		if err := db.RunMigrations(); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
		log.Println("✓ Database migrations applied")
	}

	// Initialize Redis client with retry logic
	var redisCache *cache.RedisCache
	if cfg.Redis.Disable {
		log.Println("⊘ Redis disabled, snapshot cache will not be populated")
	} else {
		maxRetries := 30
		retryDelay := 2 * time.Second

		log.Println("Connecting to Redis...")
		for i := 0; i < maxRetries; i++ {
			redisCache, err = cache.NewRedisCache(cfg.Redis.URL)
			if err == nil {
				break
			}

			if i < maxRetries-1 {
				log.Printf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
				time.Sleep(retryDelay)
			} else {
				log.Fatalf("Failed to connect to Redis after %d attempts: %v", maxRetries, err)
			}
		}
		defer redisCache.Close()

		log.Println("✓ Connected to Redis")
	}

	// The stream publisher shares the cache's connection
	var redisPublisher *publisher.RedisStreamPublisher
	if redisCache != nil {
		redisPublisher = publisher.NewRedisStreamPublisher(redisCache.Client())
		log.Println("✓ Redis stream publisher initialized")
	}

	// Build the acquisition pipeline
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
		log.Println("✓ Headless renderer enabled")
	}

	runner := pipeline.NewRunner(plain, rendered, pacer)
	aggregator := pipeline.NewAggregator(runner)

	// Initialize services
	snapshots := service.NewSnapshotService(aggregator, game.Catalog, db, redisCache, redisPublisher, service.SnapshotConfig{
		OutputPath:  cfg.Snapshot.OutputPath,
		CacheTTL:    cfg.Snapshot.CacheTTL,
		HistoryKeep: cfg.Snapshot.HistoryKeep,
	})
	games := service.NewGameService(game.Catalog, snapshots, db)
	stats := service.NewStatsService(db)

	// Initialize WebSocket server and wire it as the live feed
	wsServer := websocket.NewServer()
	snapshots.SetNotifier(wsServer)

	// Initialize refresh service
	refreshService := refresh.NewService(snapshots, nil)
	refreshService.SetReporter(wsServer)
	refreshService.Start()
	log.Println("✓ Refresh service started")

	// Initialize scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewOrchestrator(snapshots, &scheduler.Config{
		Interval:             cfg.Scheduler.Interval,
		RunOnStart:           cfg.Scheduler.RunOnStart,
		MaxConsecutiveErrors: 5,
		RetryDelay:           2 * time.Minute,
	}, nil)
	sched.Start(ctx)

	log.Println("✓ Scheduler started")

	// Initialize REST API server
	restServer := rest.NewServer(cfg.Server.HTTPAddr, snapshots, games, stats, refreshService)
	go func() {
		log.Printf("Starting REST API server on %s", cfg.Server.HTTPAddr)
		if err := restServer.Start(); err != nil {
			log.Printf("REST server error: %v", err)
		}
	}()

	log.Printf("✓ REST API server listening on %s", cfg.Server.HTTPAddr)

	go func() {
		log.Printf("Starting WebSocket server on %s", cfg.Server.WSAddr)
		if err := wsServer.Start(cfg.Server.WSAddr); err != nil {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("✓ WebSocket server listening on %s", cfg.Server.WSAddr)
	log.Printf("✓ Felicitas v%s started successfully", serviceVersion)
	log.Printf("  REST API: http://0.0.0.0%s", cfg.Server.HTTPAddr)
	log.Printf("  WebSocket: ws://0.0.0.0%s/ws/jackpots", cfg.Server.WSAddr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down Felicitas gracefully...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := refreshService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Refresh service shutdown error: %v", err)
	}

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}

	log.Println("Felicitas stopped")
}
