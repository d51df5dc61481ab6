package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goldwarehouse/internal/api/handlers"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/service"
	"goldwarehouse/internal/testutil"
)

// TestSystemHandler tests the health and version endpoints.
func TestSystemHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewSystemHandler(service.NewSystemService(db))

	t.Run("health reports connected database", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Health(rec, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var body handlers.HealthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if body.Status != "healthy" || body.Database != "connected" {
			t.Errorf("Unexpected health body: %+v", body)
		}
	})

	t.Run("version reports app and schema versions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Version(rec, httptest.NewRequest(http.MethodGet, "/api/system/version", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var body handlers.VersionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if body.AppVersion != service.AppVersion {
			t.Errorf("Expected app version %s, got %s", service.AppVersion, body.AppVersion)
		}
		if body.SchemaVersion < 1 {
			t.Errorf("Expected applied schema version, got %d", body.SchemaVersion)
		}
	})
}

// TestJobsHandler tests the dashboard endpoints.
func TestJobsHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("runs of a tracked job", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		jobRepo := repository.NewJobRepository(db)
		handler := handlers.NewJobsHandler(jobRepo)

		tracker := testutil.NewTestTrackerService(t, db)
		handle, err := tracker.Start(ctx, "load-staging")
		if err != nil {
			t.Fatalf("Start() returned unexpected error: %v", err)
		}
		if err := tracker.End(ctx, handle, true, 7, nil); err != nil {
			t.Fatalf("End() returned unexpected error: %v", err)
		}

		rec := httptest.NewRecorder()
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/jobs/load-staging/runs", map[string]string{"name": "load-staging"})
		handler.Runs(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var runs []handlers.RunResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("Expected 1 run, got %d", len(runs))
		}
		if runs[0].Status != "SUCCESS" || runs[0].RecordsProcessed != 7 {
			t.Errorf("Unexpected run body: %+v", runs[0])
		}
	})

	t.Run("unknown job yields 404", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewJobsHandler(repository.NewJobRepository(db))

		rec := httptest.NewRecorder()
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/jobs/ghost/runs", map[string]string{"name": "ghost"})
		handler.Runs(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

// TestPricesHandler tests the warehouse read endpoints.
func TestPricesHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	stagingRepo := repository.NewStagingRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	handler := handlers.NewPricesHandler(stagingRepo, warehouseRepo)

	testutil.NewPrice().WithGoldType("SJC 1L").BuildCanonical(t, db)

	t.Run("latest returns canonical prices", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/prices/latest", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var prices []handlers.PriceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &prices); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(prices) != 1 || prices[0].GoldType != "SJC 1L" {
			t.Errorf("Unexpected prices body: %+v", prices)
		}
	})

	t.Run("empty marts return empty arrays", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.DailyMart(rec, httptest.NewRequest(http.MethodGet, "/api/marts/daily", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if body := rec.Body.String(); body != "[]\n" {
			t.Errorf("Expected empty JSON array, got %q", body)
		}
	})
}
