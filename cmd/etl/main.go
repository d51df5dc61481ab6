package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"goldwarehouse/internal/api"
	"goldwarehouse/internal/config"
	"goldwarehouse/internal/database"
	"goldwarehouse/internal/extract"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/scheduler"
	"goldwarehouse/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply pending migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	stagingRepo := repository.NewStagingRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	trackerService := service.NewTrackerService(jobRepo)
	mergeService := service.NewMergeService(db, stagingRepo)

	collectors := []extract.Collector{
		extract.NewFileCollector(cfg.Extract.DataDir),
	}
	if cfg.Extract.FeedURL != "" {
		collectors = append(collectors, extract.NewWebCollector(cfg.Extract.FeedURL))
	}

	pipelineService := service.NewPipelineService(
		db,
		stagingRepo,
		warehouseRepo,
		mergeService,
		trackerService,
		collectors,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One full pass on startup so a fresh deployment has data before the
	// first scheduled interval elapses.
	if err := pipelineService.RunFullPipeline(ctx); err != nil {
		log.Printf("ERROR: startup pipeline pass failed: %v", err)
	}

	// Interval triggers, registered in pipeline order
	sched := scheduler.New(pipelineService, cfg.Scheduler.Tick)
	for _, name := range []string{service.JobExtractWeb, service.JobExtractFile} {
		if pipelineService.HasCollector(name) {
			sched.RegisterInterval(name, cfg.Scheduler.ExtractInterval)
		}
	}
	sched.RegisterInterval(service.JobLoadStaging, cfg.Scheduler.MergeInterval)
	for _, name := range []string{
		service.JobTransform,
		service.JobLoadWarehouse,
		service.JobDailyMart,
		service.JobMonthlyMart,
	} {
		sched.RegisterInterval(name, cfg.Scheduler.MartInterval)
	}

	// Time-of-day triggers from the Job_Schedule table
	schedules, err := jobRepo.GetActiveSchedules(ctx)
	if err != nil {
		log.Fatalf("Failed to load job schedules: %v", err)
	}
	for _, js := range schedules {
		if err := sched.RegisterSchedule(js); err != nil {
			log.Printf("ERROR: skipping schedule for %s: %v", js.JobName, err)
		}
	}

	// Create HTTP server for the status API
	router := api.NewRouter(systemService, jobRepo, stagingRepo, warehouseRepo, cfg)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Shutdown error: %v", err)
	}

	log.Println("Exited")
}
