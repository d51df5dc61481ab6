package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"goldwarehouse/internal/apperrors"
	"goldwarehouse/internal/repository"
)

// MergeResult describes the outcome of one merge cycle.
type MergeResult struct {
	NewRows     int    // staging rows with no value match in canonical
	BackupTable string // empty when the merge was a no-op
	Installed   int    // rows installed into canonical
}

// MergeService reconciles the staging buffer into the canonical price
// table: diff by value, snapshot a backup, swap contents atomically, then
// truncate staging. The whole cycle runs under the shared retry policy and
// a single transaction per attempt.
//
// Matching ignores UpdateTime on purpose: a re-observation of identical
// prices is treated as "no change" and the previously stored timestamp is
// kept. This is the documented dedup-by-value policy, not an oversight.
//
// Not safe under concurrent writers. The process is the single writer of
// GoldPrices and GoldPrices_temp; the transaction protects against partial
// failure, not against a second actor racing the diff.
type MergeService struct {
	db          *sql.DB
	stagingRepo *repository.StagingRepository
	now         func() time.Time
}

// NewMergeService creates a new MergeService.
func NewMergeService(db *sql.DB, stagingRepo *repository.StagingRepository) *MergeService {
	return &MergeService{
		db:          db,
		stagingRepo: stagingRepo,
		now:         time.Now,
	}
}

// NewMergeServiceWithClock creates a MergeService with an injected clock
// used for backup table naming.
func NewMergeServiceWithClock(db *sql.DB, stagingRepo *repository.StagingRepository, now func() time.Time) *MergeService {
	return &MergeService{
		db:          db,
		stagingRepo: stagingRepo,
		now:         now,
	}
}

// Merge runs one reconciliation cycle. Each failed attempt rolls back its
// transaction; after the final attempt the error is returned to the caller,
// never swallowed.
func (s *MergeService) Merge(ctx context.Context) (MergeResult, error) {
	var result MergeResult

	err := withRetry(ctx, func(ctx context.Context) error {
		r, err := s.mergeOnce(ctx)
		if err != nil {
			log.Printf("merge attempt failed, will retry if attempts remain: %v", err)
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge failed after %d attempts: %w", retryAttempts, err)
	}

	return result, nil
}

func (s *MergeService) mergeOnce(ctx context.Context) (MergeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	staging := s.stagingRepo.WithTx(tx)

	diffCount, err := staging.CountNewRows(ctx)
	if err != nil {
		return MergeResult{}, err
	}

	// Nothing genuinely new: drop the staging buffer and stop. Running the
	// merge twice with unchanged staging content lands here on the second
	// pass.
	if diffCount == 0 {
		if err := staging.TruncateStaging(ctx); err != nil {
			return MergeResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return MergeResult{}, fmt.Errorf("failed to commit merge transaction: %w", err)
		}
		return MergeResult{}, nil
	}

	stagingCount, err := staging.CountStaging(ctx)
	if err != nil {
		return MergeResult{}, err
	}

	backupName, err := staging.Backup(ctx, s.now().Format("20060102_150405"))
	if err != nil {
		return MergeResult{}, err
	}

	installed, err := staging.SwapFromStaging(ctx)
	if err != nil {
		return MergeResult{}, err
	}

	if installed != stagingCount {
		return MergeResult{}, fmt.Errorf("%w: staged %d rows but installed %d", apperrors.ErrMergeIntegrity, stagingCount, installed)
	}

	canonicalCount, err := staging.CountCanonical(ctx)
	if err != nil {
		return MergeResult{}, err
	}
	if canonicalCount != stagingCount {
		return MergeResult{}, fmt.Errorf("%w: canonical holds %d rows after swap, expected %d", apperrors.ErrMergeIntegrity, canonicalCount, stagingCount)
	}

	if err := staging.TruncateStaging(ctx); err != nil {
		return MergeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return MergeResult{}, fmt.Errorf("failed to commit merge transaction: %w", err)
	}

	return MergeResult{
		NewRows:     diffCount,
		BackupTable: backupName,
		Installed:   installed,
	}, nil
}
