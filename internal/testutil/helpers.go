package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"goldwarehouse/internal/extract"
	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/service"
)

// advancingClock steps one second per call so consecutive merges within a
// test never collide on the timestamped backup table name, and consecutive
// job runs get distinct, ordered start times.
func advancingClock() func() time.Time {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

func NewTestTrackerService(t *testing.T, db *sql.DB) *service.TrackerService {
	t.Helper()

	jobRepo := repository.NewJobRepository(db)

	return service.NewTrackerServiceWithClock(jobRepo, advancingClock())
}

func NewTestMergeService(t *testing.T, db *sql.DB) *service.MergeService {
	t.Helper()

	stagingRepo := repository.NewStagingRepository(db)

	return service.NewMergeServiceWithClock(db, stagingRepo, advancingClock())
}

func NewTestPipelineService(t *testing.T, db *sql.DB, collectors ...extract.Collector) *service.PipelineService {
	t.Helper()

	stagingRepo := repository.NewStagingRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	jobRepo := repository.NewJobRepository(db)

	return service.NewPipelineService(
		db,
		stagingRepo,
		warehouseRepo,
		service.NewMergeServiceWithClock(db, stagingRepo, advancingClock()),
		service.NewTrackerServiceWithClock(jobRepo, advancingClock()),
		collectors,
	)
}

// StaticCollector returns a fixed raw batch on every Collect call. Useful
// for driving the pipeline without files or a network feed.
type StaticCollector struct {
	JobName string
	Records []model.RawPriceRecord
	Err     error
}

func (c *StaticCollector) Name() string { return c.JobName }

func (c *StaticCollector) Collect(ctx context.Context) ([]model.RawPriceRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Records, nil
}
