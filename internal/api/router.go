package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goldwarehouse/internal/api/handlers"
	custommiddleware "goldwarehouse/internal/api/middleware"
	"goldwarehouse/internal/config"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	jobRepo *repository.JobRepository,
	stagingRepo *repository.StagingRepository,
	warehouseRepo *repository.WarehouseRepository,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/jobs", func(r chi.Router) {
			jobsHandler := handlers.NewJobsHandler(jobRepo)
			r.Get("/", jobsHandler.List)
			r.Get("/{name}/runs", jobsHandler.Runs)
			r.Get("/{name}/logs", jobsHandler.Logs)
		})

		pricesHandler := handlers.NewPricesHandler(stagingRepo, warehouseRepo)
		r.Route("/prices", func(r chi.Router) {
			r.Get("/latest", pricesHandler.Latest)
		})
		r.Route("/marts", func(r chi.Router) {
			r.Get("/daily", pricesHandler.DailyMart)
			r.Get("/monthly", pricesHandler.MonthlyMart)
		})
		r.Get("/backups", pricesHandler.Backups)
	})

	return r
}
