package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
)

// RunHandle identifies one job run from Start until its single End call.
type RunHandle struct {
	JobID    string
	StatusID string
	JobName  string
}

// TrackerService records the lifecycle of every job invocation in the
// control tables: NONE -> RUNNING -> {SUCCESS, FAILED}, with an append-only
// log trail and notification fan-out at the end of each run.
type TrackerService struct {
	jobRepo *repository.JobRepository
	now     func() time.Time
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(jobRepo *repository.JobRepository) *TrackerService {
	return &TrackerService{
		jobRepo: jobRepo,
		now:     time.Now,
	}
}

// NewTrackerServiceWithClock creates a TrackerService with an injected clock.
func NewTrackerServiceWithClock(jobRepo *repository.JobRepository, now func() time.Time) *TrackerService {
	return &TrackerService{
		jobRepo: jobRepo,
		now:     now,
	}
}

// Start registers the job if needed, creates a RUNNING Job_Status row plus
// its opening INFO log entry, and returns the run handle. Callers must
// invoke End exactly once for every handle, from failure paths as well as
// success paths.
func (s *TrackerService) Start(ctx context.Context, jobName string) (RunHandle, error) {
	jobID, err := s.jobRepo.EnsureJob(ctx, jobName)
	if err != nil {
		return RunHandle{}, fmt.Errorf("failed to start job %q: %w", jobName, err)
	}

	statusID, err := s.jobRepo.InsertRun(ctx, jobID, s.now())
	if err != nil {
		return RunHandle{}, fmt.Errorf("failed to start job %q: %w", jobName, err)
	}

	handle := RunHandle{JobID: jobID, StatusID: statusID, JobName: jobName}
	s.Log(ctx, handle, fmt.Sprintf("Starting job: %s", jobName), model.LevelInfo)

	return handle, nil
}

// Log appends a log entry to the run. Control-table log writes are retried
// under the shared policy; a write that still fails is reported on stderr
// but never aborts the job being logged.
func (s *TrackerService) Log(ctx context.Context, handle RunHandle, message, level string) {
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.jobRepo.InsertLog(ctx, handle.JobID, handle.StatusID, message, level, s.now())
	})
	if err != nil {
		log.Printf("failed to write log entry for job %s: %v", handle.JobName, err)
	}
}

// End applies the terminal status to the run, writes the closing log entry,
// and emits Job_Notifications rows for every configured recipient matching
// the outcome.
func (s *TrackerService) End(ctx context.Context, handle RunHandle, success bool, records int, errorMessage *string) error {
	status := model.StatusSuccess
	if !success {
		status = model.StatusFailed
	}

	if err := s.jobRepo.EndRun(ctx, handle.StatusID, status, s.now(), records, errorMessage); err != nil {
		return fmt.Errorf("failed to end job %q: %w", handle.JobName, err)
	}

	message := fmt.Sprintf("Job completed: %s", handle.JobName)
	level := model.LevelInfo
	if !success {
		detail := "unknown error"
		if errorMessage != nil {
			detail = *errorMessage
		}
		message = fmt.Sprintf("Job failed: %s - %s", handle.JobName, detail)
		level = model.LevelError
	}
	s.Log(ctx, handle, message, level)

	if err := s.notify(ctx, handle, success, errorMessage); err != nil {
		log.Printf("failed to emit notifications for job %s: %v", handle.JobName, err)
	}

	return nil
}

// notify inserts one Job_Notifications row per recipient subscribed to this
// outcome. Delivery is an external concern.
func (s *TrackerService) notify(ctx context.Context, handle RunHandle, success bool, errorMessage *string) error {
	configs, err := s.jobRepo.GetNotificationConfigs(ctx, handle.JobID)
	if err != nil {
		return err
	}

	for _, config := range configs {
		if success && !config.NotifyOnSuccess {
			continue
		}
		if !success && !config.NotifyOnFailure {
			continue
		}

		message := fmt.Sprintf("Job %s - Success", handle.JobName)
		if !success {
			detail := "unknown error"
			if errorMessage != nil {
				detail = *errorMessage
			}
			message = fmt.Sprintf("Job %s - Failed: %s", handle.JobName, detail)
		}

		notification := model.JobNotification{
			JobID:            handle.JobID,
			StatusID:         handle.StatusID,
			NotificationType: config.NotificationType,
			Recipient:        config.EmailRecipient,
			Message:          message,
			CreatedAt:        s.now(),
		}
		if err := s.jobRepo.InsertNotification(ctx, notification); err != nil {
			return err
		}
	}

	return nil
}
