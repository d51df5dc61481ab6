package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"goldwarehouse/internal/apperrors"
	"goldwarehouse/internal/extract"
	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/transform"
)

// Named pipeline jobs, in dependency order.
const (
	JobExtractWeb    = "extract-web"
	JobExtractFile   = "extract-file"
	JobLoadStaging   = "load-staging"
	JobTransform     = "transform"
	JobLoadWarehouse = "load-warehouse"
	JobDailyMart     = "build-daily-mart"
	JobMonthlyMart   = "build-monthly-mart"
)

// PipelineOrder is the fixed order jobs run in when due at the same time,
// matching the data flow: extraction before staging load before transform
// before warehouse load before mart builds.
var PipelineOrder = []string{
	JobExtractWeb,
	JobExtractFile,
	JobLoadStaging,
	JobTransform,
	JobLoadWarehouse,
	JobDailyMart,
	JobMonthlyMart,
}

// transformOutput carries one transform run's batch-local star schema to
// the warehouse load.
type transformOutput struct {
	records     []model.CleanPriceRecord
	dateDim     []model.DateDimensionRow
	goldTypeDim []model.GoldTypeDimensionRow
	facts       []model.FactRow
}

// PipelineService sequences the pipeline stages and wraps every stage in
// the job tracker. It is driven by a single-threaded scheduler, so the
// in-memory hand-off buffers (pending raw batches, last transform output)
// need no locking.
type PipelineService struct {
	db            *sql.DB
	stagingRepo   *repository.StagingRepository
	warehouseRepo *repository.WarehouseRepository
	merger        *MergeService
	tracker       *TrackerService
	normalizer    *transform.Normalizer
	collectors    map[string]extract.Collector
	now           func() time.Time

	pending       []model.RawPriceRecord
	lastTransform *transformOutput
}

// NewPipelineService creates a new PipelineService. Collectors are keyed by
// their job name; extraction jobs with no registered collector are skipped.
func NewPipelineService(
	db *sql.DB,
	stagingRepo *repository.StagingRepository,
	warehouseRepo *repository.WarehouseRepository,
	merger *MergeService,
	tracker *TrackerService,
	collectors []extract.Collector,
) *PipelineService {
	byName := make(map[string]extract.Collector, len(collectors))
	for _, c := range collectors {
		byName[c.Name()] = c
	}

	return &PipelineService{
		db:            db,
		stagingRepo:   stagingRepo,
		warehouseRepo: warehouseRepo,
		merger:        merger,
		tracker:       tracker,
		normalizer:    transform.NewNormalizer(),
		collectors:    byName,
		now:           time.Now,
	}
}

// RunJob runs one named job wrapped in tracker start/end. A job failure is
// recorded and returned; it never takes the caller down.
func (p *PipelineService) RunJob(ctx context.Context, name string) error {
	switch name {
	case JobExtractWeb, JobExtractFile:
		collector, ok := p.collectors[name]
		if !ok {
			return fmt.Errorf("%w: no collector registered for %s", apperrors.ErrJobNotFound, name)
		}
		return p.runTracked(ctx, name, func(ctx context.Context, h RunHandle) (int, error) {
			return p.extractStage(ctx, h, collector)
		})
	case JobLoadStaging:
		return p.runTracked(ctx, name, p.loadStagingStage)
	case JobTransform:
		return p.runTracked(ctx, name, p.transformStage)
	case JobLoadWarehouse:
		return p.runTracked(ctx, name, p.loadWarehouseStage)
	case JobDailyMart:
		return p.runTracked(ctx, name, p.dailyMartStage)
	case JobMonthlyMart:
		return p.runTracked(ctx, name, p.monthlyMartStage)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, name)
	}
}

// RunFullPipeline runs every stage once in dependency order, stopping at
// the first failure. Extraction jobs without a registered collector are
// skipped rather than failed. Cancellation is checked between stages.
func (p *PipelineService) RunFullPipeline(ctx context.Context) error {
	for _, name := range PipelineOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == JobExtractWeb || name == JobExtractFile {
			if _, ok := p.collectors[name]; !ok {
				continue
			}
		}
		if err := p.RunJob(ctx, name); err != nil {
			return fmt.Errorf("pipeline stopped at %s: %w", name, err)
		}
	}
	return nil
}

// HasCollector reports whether an extraction job has a registered producer.
func (p *PipelineService) HasCollector(name string) bool {
	_, ok := p.collectors[name]
	return ok
}

// runTracked wraps a stage in Start/End so every invocation leaves exactly
// one terminal Job_Status row, including when the stage panics.
//
// Cancellation is honored between jobs only: a started run always reaches
// its terminal status, even when the caller's context is cancelled
// mid-stage.
func (p *PipelineService) runTracked(ctx context.Context, name string, stage func(ctx context.Context, h RunHandle) (int, error)) (err error) {
	ctx = context.WithoutCancel(ctx)

	handle, err := p.tracker.Start(ctx, name)
	if err != nil {
		return err
	}

	var records int

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		if err != nil {
			message := err.Error()
			if endErr := p.tracker.End(ctx, handle, false, records, &message); endErr != nil {
				err = fmt.Errorf("%w (additionally failed to record failure: %v)", err, endErr)
			}
			return
		}
		err = p.tracker.End(ctx, handle, true, records, nil)
	}()

	records, err = stage(ctx, handle)
	return err
}

// extractStage collects one raw batch and parks it for the next staging
// load.
func (p *PipelineService) extractStage(ctx context.Context, h RunHandle, collector extract.Collector) (int, error) {
	raws, err := collector.Collect(ctx)
	if err != nil {
		return 0, err
	}

	p.pending = append(p.pending, raws...)
	p.tracker.Log(ctx, h, fmt.Sprintf("Collected %d raw records", len(raws)), model.LevelInfo)

	return len(raws), nil
}

// loadStagingStage normalizes the pending raw batches into the staging
// buffer and reconciles it into the canonical table. The pending buffer is
// consumed even when normalization fails: a rejected batch will not get
// better by being retried.
func (p *PipelineService) loadStagingStage(ctx context.Context, h RunHandle) (int, error) {
	if len(p.pending) == 0 {
		p.tracker.Log(ctx, h, "No pending raw batches, nothing to stage", model.LevelInfo)
		return 0, nil
	}

	raws := p.pending
	p.pending = nil

	records, rejected, err := p.normalizer.NormalizeBatch(raws)
	if err != nil {
		return 0, err
	}
	if rejected > 0 {
		p.tracker.Log(ctx, h, fmt.Sprintf("Rejected %d invalid records during normalization", rejected), model.LevelInfo)
	}

	staged, err := p.stagingRepo.ReplaceStaging(ctx, records)
	if err != nil {
		return 0, err
	}
	p.tracker.Log(ctx, h, fmt.Sprintf("Loaded %d records to staging", staged), model.LevelInfo)

	result, err := p.merger.Merge(ctx)
	if err != nil {
		return staged, err
	}

	if result.NewRows == 0 {
		p.tracker.Log(ctx, h, "No new data to load", model.LevelInfo)
	} else {
		p.tracker.Log(ctx, h, fmt.Sprintf("Loaded %d new records (backup: %s)", result.NewRows, result.BackupTable), model.LevelInfo)
	}

	return staged, nil
}

// transformStage rebuilds the batch-local star schema from the canonical
// table and parks it for the warehouse load.
func (p *PipelineService) transformStage(ctx context.Context, h RunHandle) (int, error) {
	output, err := p.buildFromCanonical(ctx)
	if err != nil {
		return 0, err
	}

	p.lastTransform = output
	p.tracker.Log(ctx, h, fmt.Sprintf("Transformed %d records into %d dates, %d gold types, %d facts",
		len(output.records), len(output.dateDim), len(output.goldTypeDim), len(output.facts)), model.LevelInfo)

	return len(output.records), nil
}

func (p *PipelineService) buildFromCanonical(ctx context.Context) (*transformOutput, error) {
	canonical, err := p.stagingRepo.GetCanonical(ctx)
	if err != nil {
		return nil, err
	}
	if len(canonical) == 0 {
		return nil, fmt.Errorf("%w: canonical table is empty", apperrors.ErrNoValidData)
	}

	records := make([]model.CleanPriceRecord, len(canonical))
	for i, row := range canonical {
		records[i] = model.CleanPriceRecord{
			GoldType:   row.GoldType,
			BuyPrice:   row.BuyPrice,
			SellPrice:  row.SellPrice,
			UpdateTime: row.UpdateTime,
		}
	}

	dateDim := transform.BuildDateDimension(records)
	goldTypeDim := transform.BuildGoldTypeDimension(records, p.now())
	facts := transform.BuildFacts(records, goldTypeDim)

	return &transformOutput{
		records:     records,
		dateDim:     dateDim,
		goldTypeDim: goldTypeDim,
		facts:       facts,
	}, nil
}

// loadWarehouseStage installs the last transform output into the star
// schema. Batch-local gold type keys are remapped to the persisted
// surrogate keys before any fact row is written; the remapping is total, a
// fact row with an unmapped key would violate the dimension's foreign key.
func (p *PipelineService) loadWarehouseStage(ctx context.Context, h RunHandle) (int, error) {
	output := p.lastTransform
	if output == nil {
		built, err := p.buildFromCanonical(ctx)
		if err != nil {
			return 0, err
		}
		output = built
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin warehouse transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	warehouse := p.warehouseRepo.WithTx(tx)

	for _, row := range output.dateDim {
		if err := warehouse.UpsertDateRow(ctx, row); err != nil {
			return 0, err
		}
	}

	// Lookup-or-insert every gold type, building the batch-local -> persisted
	// key remap.
	remap := make(map[int64]int64, len(output.goldTypeDim))
	for _, row := range output.goldTypeDim {
		persistedKey, err := warehouse.UpsertGoldType(ctx, row.GoldType, row.CreatedAt)
		if err != nil {
			return 0, err
		}
		remap[row.GoldTypeKey] = persistedKey
	}

	facts := make([]model.FactRow, len(output.facts))
	for i, f := range output.facts {
		persistedKey, ok := remap[f.GoldTypeKey]
		if !ok {
			return 0, fmt.Errorf("%w: fact references unmapped batch key %d", apperrors.ErrGoldTypeNotFound, f.GoldTypeKey)
		}
		f.GoldTypeKey = persistedKey
		facts[i] = f
	}

	// The transform derives the full fact set from the canonical table, so
	// the fact table is rebuilt rather than appended to; appending would
	// duplicate every fact already loaded.
	if err := warehouse.ClearFacts(ctx); err != nil {
		return 0, err
	}
	if err := warehouse.InsertFacts(ctx, facts); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit warehouse transaction: %w", err)
	}

	p.lastTransform = nil
	p.tracker.Log(ctx, h, fmt.Sprintf("Warehouse load completed, %d fact rows loaded", len(facts)), model.LevelInfo)

	return len(facts), nil
}

// dailyMartStage fully recomputes the daily aggregate mart from the fact
// table.
func (p *PipelineService) dailyMartStage(ctx context.Context, h RunHandle) (int, error) {
	facts, err := p.warehouseRepo.GetFacts(ctx)
	if err != nil {
		return 0, err
	}

	aggregates := transform.BuildDailyAggregates(facts)
	if err := p.warehouseRepo.ReplaceDailyAggregates(ctx, aggregates); err != nil {
		return 0, err
	}

	p.tracker.Log(ctx, h, fmt.Sprintf("Daily mart rebuilt with %d rows", len(aggregates)), model.LevelInfo)
	return len(aggregates), nil
}

// monthlyMartStage fully recomputes the monthly aggregate mart, joining
// facts to the date dimension for the (Year, Month) grain.
func (p *PipelineService) monthlyMartStage(ctx context.Context, h RunHandle) (int, error) {
	facts, err := p.warehouseRepo.GetFacts(ctx)
	if err != nil {
		return 0, err
	}

	dateDim, err := p.warehouseRepo.GetDateDimension(ctx)
	if err != nil {
		return 0, err
	}

	aggregates := transform.BuildMonthlyAggregates(facts, dateDim)
	if err := p.warehouseRepo.ReplaceMonthlyAggregates(ctx, aggregates); err != nil {
		return 0, err
	}

	p.tracker.Log(ctx, h, fmt.Sprintf("Monthly mart rebuilt with %d rows", len(aggregates)), model.LevelInfo)
	return len(aggregates), nil
}
