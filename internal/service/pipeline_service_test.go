package service_test

import (
	"context"
	"testing"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/service"
	"goldwarehouse/internal/testutil"
)

func rawBatch() []model.RawPriceRecord {
	return []model.RawPriceRecord{
		{"type": "SJC 1L", "buy": 73500000.0, "sell": 74300000.0, "update": "15/01/2024 09:30:00"},
		{"type": "PNJ", "buy": 60000000.0, "sell": 60800000.0, "update": "15/01/2024 09:30:00"},
	}
}

// cancellingCollector cancels the run's context while its job is mid-stage,
// then still returns a batch.
type cancellingCollector struct {
	cancel  context.CancelFunc
	records []model.RawPriceRecord
}

func (c *cancellingCollector) Name() string { return service.JobExtractFile }

func (c *cancellingCollector) Collect(ctx context.Context) ([]model.RawPriceRecord, error) {
	c.cancel()
	return c.records, nil
}

// TestPipeline_FullPass tests one end-to-end pipeline pass.
//
// WHY: The stages hand data to each other through staging tables and
// in-memory buffers; only a full pass proves the hand-offs line up.
func TestPipeline_FullPass(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	collector := &testutil.StaticCollector{JobName: service.JobExtractFile, Records: rawBatch()}
	pipeline := testutil.NewTestPipelineService(t, db, collector)

	if err := pipeline.RunFullPipeline(ctx); err != nil {
		t.Fatalf("RunFullPipeline() returned unexpected error: %v", err)
	}

	testutil.AssertRowCount(t, db, "GoldPrices", 2)
	testutil.AssertRowCount(t, db, "GoldPrices_temp", 0)
	testutil.AssertRowCount(t, db, "DimDate", 1)
	testutil.AssertRowCount(t, db, "DimGoldType", 2)
	testutil.AssertRowCount(t, db, "FactGoldPrices", 2)
	testutil.AssertRowCount(t, db, "AggDailyGoldPrices", 1)
	testutil.AssertRowCount(t, db, "AggMonthlyGoldPrices", 1)

	// Every stage that ran left a SUCCESS run behind. extract-web has no
	// collector here, so six jobs ran.
	var successes int
	if err := db.QueryRow("SELECT COUNT(*) FROM Job_Status WHERE status = 'SUCCESS'").Scan(&successes); err != nil {
		t.Fatalf("Failed to count successful runs: %v", err)
	}
	if successes != 6 {
		t.Errorf("Expected 6 successful runs, got %d", successes)
	}
}

// TestPipeline_GoldTypeKeyStableAcrossRuns tests surrogate key persistence.
//
// WHY: Fact rows reference DimGoldType keys. A gold type seen in a later
// batch under a different batch-local ordinal must still resolve to the key
// it was first assigned, or history would silently re-point.
func TestPipeline_GoldTypeKeyStableAcrossRuns(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	collector := &testutil.StaticCollector{JobName: service.JobExtractFile, Records: rawBatch()}
	pipeline := testutil.NewTestPipelineService(t, db, collector)

	if err := pipeline.RunFullPipeline(ctx); err != nil {
		t.Fatalf("first pass returned unexpected error: %v", err)
	}

	warehouseRepo := repository.NewWarehouseRepository(db)
	before, err := warehouseRepo.GetGoldTypes(ctx)
	if err != nil {
		t.Fatalf("GetGoldTypes() returned unexpected error: %v", err)
	}

	keyByType := map[string]int64{}
	for _, row := range before {
		keyByType[row.GoldType] = row.GoldTypeKey
	}

	// Second batch: new gold type first, so the batch-local ordinal of
	// "SJC 1L" shifts. The persisted key must not.
	collector.Records = []model.RawPriceRecord{
		{"type": "DOJI", "buy": 61000000.0, "sell": 61500000.0, "update": "16/01/2024 09:30:00"},
		{"type": "SJC 1L", "buy": 73800000.0, "sell": 74500000.0, "update": "16/01/2024 09:30:00"},
	}

	if err := pipeline.RunFullPipeline(ctx); err != nil {
		t.Fatalf("second pass returned unexpected error: %v", err)
	}

	after, err := warehouseRepo.GetGoldTypes(ctx)
	if err != nil {
		t.Fatalf("GetGoldTypes() returned unexpected error: %v", err)
	}
	if len(after) != 3 {
		t.Fatalf("Expected 3 gold types after second pass, got %d", len(after))
	}

	for _, row := range after {
		if want, seen := keyByType[row.GoldType]; seen && row.GoldTypeKey != want {
			t.Errorf("Gold type %q key changed from %d to %d", row.GoldType, want, row.GoldTypeKey)
		}
	}

	// Facts reference the persisted keys, not the batch ordinals.
	var orphans int
	query := `
        SELECT COUNT(*) FROM FactGoldPrices f
        LEFT JOIN DimGoldType d ON d.GoldTypeKey = f.GoldTypeKey
        WHERE d.GoldTypeKey IS NULL
    `
	if err := db.QueryRow(query).Scan(&orphans); err != nil {
		t.Fatalf("Failed to count orphaned facts: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected no orphaned fact rows, got %d", orphans)
	}
}

// TestPipeline_StageBehavior tests individual stage edge cases.
func TestPipeline_StageBehavior(t *testing.T) {
	ctx := context.Background()

	t.Run("load-staging with nothing pending succeeds as no-op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		pipeline := testutil.NewTestPipelineService(t, db)

		if err := pipeline.RunJob(ctx, service.JobLoadStaging); err != nil {
			t.Fatalf("RunJob() returned unexpected error: %v", err)
		}

		var status string
		if err := db.QueryRow("SELECT status FROM Job_Status").Scan(&status); err != nil {
			t.Fatalf("Failed to read run status: %v", err)
		}
		if status != model.StatusSuccess {
			t.Errorf("Expected SUCCESS for empty no-op, got %s", status)
		}
	})

	t.Run("transform on empty canonical fails the run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		pipeline := testutil.NewTestPipelineService(t, db)

		if err := pipeline.RunJob(ctx, service.JobTransform); err == nil {
			t.Fatal("Expected transform to fail on empty canonical table")
		}

		var status string
		var errorMessage *string
		if err := db.QueryRow("SELECT status, error_message FROM Job_Status").Scan(&status, &errorMessage); err != nil {
			t.Fatalf("Failed to read run status: %v", err)
		}
		if status != model.StatusFailed {
			t.Errorf("Expected FAILED, got %s", status)
		}
		if errorMessage == nil {
			t.Error("Expected error message to be recorded")
		}
	})

	t.Run("unknown job name is rejected without a run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		pipeline := testutil.NewTestPipelineService(t, db)

		if err := pipeline.RunJob(ctx, "no-such-job"); err == nil {
			t.Fatal("Expected error for unknown job name")
		}
		testutil.AssertRowCount(t, db, "Job_Status", 0)
	})

	t.Run("warehouse load is rebuilt, not appended", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		collector := &testutil.StaticCollector{JobName: service.JobExtractFile, Records: rawBatch()}
		pipeline := testutil.NewTestPipelineService(t, db, collector)

		if err := pipeline.RunFullPipeline(ctx); err != nil {
			t.Fatalf("first pass returned unexpected error: %v", err)
		}
		if err := pipeline.RunFullPipeline(ctx); err != nil {
			t.Fatalf("second pass returned unexpected error: %v", err)
		}

		// Second pass re-observed identical prices: canonical unchanged, so
		// the fact table still holds one row per canonical record.
		testutil.AssertRowCount(t, db, "FactGoldPrices", 2)
	})

	t.Run("cancellation mid-job still reaches a terminal status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		runCtx, cancel := context.WithCancel(context.Background())
		collector := &cancellingCollector{cancel: cancel, records: rawBatch()}
		pipeline := testutil.NewTestPipelineService(t, db, collector)

		if err := pipeline.RunJob(runCtx, service.JobExtractFile); err != nil {
			t.Fatalf("RunJob() returned unexpected error: %v", err)
		}

		// A run that started must end: the status and log writes survive the
		// cancellation that arrived while the stage was executing.
		var status string
		if err := db.QueryRow("SELECT status FROM Job_Status").Scan(&status); err != nil {
			t.Fatalf("Failed to read run status: %v", err)
		}
		if status != model.StatusSuccess {
			t.Errorf("Expected terminal SUCCESS after mid-job cancellation, got %s", status)
		}
	})

	t.Run("collector failure is recorded as FAILED run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		collector := &testutil.StaticCollector{
			JobName: service.JobExtractFile,
			Err:     context.DeadlineExceeded,
		}
		pipeline := testutil.NewTestPipelineService(t, db, collector)

		if err := pipeline.RunJob(ctx, service.JobExtractFile); err == nil {
			t.Fatal("Expected collector error to surface")
		}

		var status string
		if err := db.QueryRow("SELECT status FROM Job_Status").Scan(&status); err != nil {
			t.Fatalf("Failed to read run status: %v", err)
		}
		if status != model.StatusFailed {
			t.Errorf("Expected FAILED, got %s", status)
		}
	})
}
