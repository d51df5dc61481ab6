package apperrors

import "errors"

// Row-level validation errors. These are contained inside the transform
// engine: the offending row is dropped and logged, the batch continues.
var (
	// ErrMissingGoldType indicates a raw record with no resolvable gold type field.
	ErrMissingGoldType = errors.New("missing gold type")

	// ErrInvalidPrice indicates a buy or sell price that is negative or not numeric.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrGoldTypeNotFound indicates a fact row whose gold type has no dimension entry.
	ErrGoldTypeNotFound = errors.New("gold type not found in dimension")
)

// Batch-level errors. These abort the current job (marked FAILED) but never
// halt the scheduler loop.
var (
	// ErrNoValidData indicates that an entire batch was rejected during
	// normalization and there is nothing to stage.
	ErrNoValidData = errors.New("no valid data in batch")

	// ErrSchemaMissingColumns indicates an input batch where a required
	// column is absent from every row. Fatal for the job, no retry.
	ErrSchemaMissingColumns = errors.New("missing required columns in batch")

	// ErrEmptyBatch indicates a collector returned zero raw records.
	ErrEmptyBatch = errors.New("empty batch")
)

// Store errors raised by the merge/load path and the job tracker.
var (
	// ErrMergeIntegrity indicates unexpected state during the backup/swap,
	// e.g. the canonical row count after the swap not matching staging.
	ErrMergeIntegrity = errors.New("merge integrity violation")

	// ErrJobNotFound indicates a job name with no ETL_Jobs registration.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobRunNotFound indicates a status_id with no Job_Status row.
	ErrJobRunNotFound = errors.New("job run not found")

	// ErrRunAlreadyEnded indicates End was called twice for the same run handle.
	ErrRunAlreadyEnded = errors.New("job run already ended")
)
