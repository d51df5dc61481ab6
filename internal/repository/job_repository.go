package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goldwarehouse/internal/apperrors"
	"goldwarehouse/internal/model"
)

// JobRepository provides data access for the control tables: ETL_Jobs,
// Job_Status, Logs, Job_Schedule, Notification_Config and
// Job_Notifications. Job_Status and Logs rows are append-only history; the
// only permitted mutation is the single terminal update of a RUNNING run.
type JobRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewJobRepository creates a new JobRepository with the provided database
// connection.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) WithTx(tx *sql.Tx) *JobRepository {
	return &JobRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *JobRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// EnsureJob returns the job_id for a job name, registering the job in
// ETL_Jobs on first use.
func (r *JobRepository) EnsureJob(ctx context.Context, name string) (string, error) {
	q := r.getQuerier()

	var id string
	err := q.QueryRowContext(ctx, "SELECT job_id FROM ETL_Jobs WHERE job_name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up job %q: %w", name, err)
	}

	id = uuid.New().String()
	_, err = q.ExecContext(ctx,
		"INSERT INTO ETL_Jobs (job_id, job_name, is_active) VALUES (?, ?, 1)",
		id, name,
	)
	if err != nil {
		return "", fmt.Errorf("failed to register job %q: %w", name, err)
	}

	return id, nil
}

// GetJob retrieves a job by name.
func (r *JobRepository) GetJob(ctx context.Context, name string) (model.Job, error) {
	var j model.Job

	err := r.getQuerier().QueryRowContext(ctx,
		"SELECT job_id, job_name, is_active FROM ETL_Jobs WHERE job_name = ?", name,
	).Scan(&j.ID, &j.Name, &j.IsActive)
	if err == sql.ErrNoRows {
		return model.Job{}, apperrors.ErrJobNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to query ETL_Jobs: %w", err)
	}

	return j, nil
}

// ListJobs retrieves all registered jobs ordered by name.
func (r *JobRepository) ListJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := r.getQuerier().QueryContext(ctx,
		"SELECT job_id, job_name, is_active FROM ETL_Jobs ORDER BY job_name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ETL_Jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan ETL_Jobs row: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ETL_Jobs: %w", err)
	}

	return jobs, nil
}

// InsertRun creates a RUNNING Job_Status row and returns its status_id.
func (r *JobRepository) InsertRun(ctx context.Context, jobID string, startTime time.Time) (string, error) {
	statusID := uuid.New().String()

	_, err := r.getQuerier().ExecContext(ctx, `
        INSERT INTO Job_Status (status_id, job_id, status, start_time, records_processed)
        VALUES (?, ?, ?, ?, 0)
    `, statusID, jobID, model.StatusRunning, FormatTime(startTime))
	if err != nil {
		return "", fmt.Errorf("failed to insert job run: %w", err)
	}

	return statusID, nil
}

// EndRun applies the single terminal update to a RUNNING run. Returns
// ErrRunAlreadyEnded if the run is no longer RUNNING, ErrJobRunNotFound if
// the status_id does not exist.
func (r *JobRepository) EndRun(ctx context.Context, statusID, status string, endTime time.Time, records int, errorMessage *string) error {
	result, err := r.getQuerier().ExecContext(ctx, `
        UPDATE Job_Status
        SET status = ?, end_time = ?, records_processed = ?, error_message = ?
        WHERE status_id = ? AND status = ?
    `, status, FormatTime(endTime), records, errorMessage, statusID, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to end job run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		var exists int
		err := r.getQuerier().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM Job_Status WHERE status_id = ?", statusID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check job run: %w", err)
		}
		if exists == 0 {
			return apperrors.ErrJobRunNotFound
		}
		return apperrors.ErrRunAlreadyEnded
	}

	return nil
}

// InsertLog appends one row to the Logs table.
func (r *JobRepository) InsertLog(ctx context.Context, jobID, statusID, message, level string, createdAt time.Time) error {
	_, err := r.getQuerier().ExecContext(ctx, `
        INSERT INTO Logs (log_id, job_id, status_id, message, level, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, uuid.New().String(), jobID, statusID, message, level, FormatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

// GetRuns retrieves the most recent runs for a job, newest first.
func (r *JobRepository) GetRuns(ctx context.Context, jobName string, limit int) ([]model.JobRun, error) {
	query := `
        SELECT s.status_id, s.job_id, j.job_name, s.status, s.start_time, s.end_time, s.records_processed, s.error_message
        FROM Job_Status s
        JOIN ETL_Jobs j ON j.job_id = s.job_id
        WHERE j.job_name = ?
        ORDER BY s.start_time DESC, s.status_id DESC
        LIMIT ?
    `

	rows, err := r.getQuerier().QueryContext(ctx, query, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query Job_Status: %w", err)
	}
	defer rows.Close()

	runs := []model.JobRun{}

	for rows.Next() {
		var run model.JobRun
		var startStr string
		var endStr sql.NullString

		err := rows.Scan(
			&run.StatusID,
			&run.JobID,
			&run.JobName,
			&run.Status,
			&startStr,
			&endStr,
			&run.RecordsProcessed,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan Job_Status row: %w", err)
		}

		run.StartTime, err = ParseTime(startStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}

		if endStr.Valid {
			end, err := ParseTime(endStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			run.EndTime = &end
		}

		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating Job_Status: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a single run by status_id.
func (r *JobRepository) GetRun(ctx context.Context, statusID string) (model.JobRun, error) {
	query := `
        SELECT s.status_id, s.job_id, j.job_name, s.status, s.start_time, s.end_time, s.records_processed, s.error_message
        FROM Job_Status s
        JOIN ETL_Jobs j ON j.job_id = s.job_id
        WHERE s.status_id = ?
    `

	var run model.JobRun
	var startStr string
	var endStr sql.NullString

	err := r.getQuerier().QueryRowContext(ctx, query, statusID).Scan(
		&run.StatusID,
		&run.JobID,
		&run.JobName,
		&run.Status,
		&startStr,
		&endStr,
		&run.RecordsProcessed,
		&run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return model.JobRun{}, apperrors.ErrJobRunNotFound
	}
	if err != nil {
		return model.JobRun{}, fmt.Errorf("failed to query Job_Status: %w", err)
	}

	run.StartTime, err = ParseTime(startStr)
	if err != nil {
		return model.JobRun{}, fmt.Errorf("failed to parse start_time: %w", err)
	}

	if endStr.Valid {
		end, err := ParseTime(endStr.String)
		if err != nil {
			return model.JobRun{}, fmt.Errorf("failed to parse end_time: %w", err)
		}
		run.EndTime = &end
	}

	return run, nil
}

// GetLogs retrieves the most recent log entries for a job, newest first.
func (r *JobRepository) GetLogs(ctx context.Context, jobName string, limit int) ([]model.LogEntry, error) {
	query := `
        SELECT l.log_id, l.job_id, l.status_id, l.message, l.level, l.created_at
        FROM Logs l
        JOIN ETL_Jobs j ON j.job_id = l.job_id
        WHERE j.job_name = ?
        ORDER BY l.created_at DESC, l.log_id DESC
        LIMIT ?
    `

	rows, err := r.getQuerier().QueryContext(ctx, query, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query Logs: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}

	for rows.Next() {
		var e model.LogEntry
		var createdStr string

		if err := rows.Scan(&e.LogID, &e.JobID, &e.StatusID, &e.Message, &e.Level, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan Logs row: %w", err)
		}

		e.CreatedAt, err = ParseTime(createdStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating Logs: %w", err)
	}

	return entries, nil
}

// GetNotificationConfigs retrieves the notification recipients configured
// for a job.
func (r *JobRepository) GetNotificationConfigs(ctx context.Context, jobID string) ([]model.NotificationConfig, error) {
	query := `
        SELECT id, job_id, notification_type, email_recipient, notify_on_success, notify_on_failure
        FROM Notification_Config
        WHERE job_id = ?
    `

	rows, err := r.getQuerier().QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notification_Config: %w", err)
	}
	defer rows.Close()

	configs := []model.NotificationConfig{}
	for rows.Next() {
		var c model.NotificationConfig
		err := rows.Scan(&c.ID, &c.JobID, &c.NotificationType, &c.EmailRecipient, &c.NotifyOnSuccess, &c.NotifyOnFailure)
		if err != nil {
			return nil, fmt.Errorf("failed to scan Notification_Config row: %w", err)
		}
		configs = append(configs, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating Notification_Config: %w", err)
	}

	return configs, nil
}

// InsertNotification appends one Job_Notifications row. Delivery is the
// concern of an external consumer.
func (r *JobRepository) InsertNotification(ctx context.Context, n model.JobNotification) error {
	_, err := r.getQuerier().ExecContext(ctx, `
        INSERT INTO Job_Notifications (id, job_id, status_id, notification_type, recipient, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, uuid.New().String(), n.JobID, n.StatusID, n.NotificationType, n.Recipient, n.Message, FormatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert job notification: %w", err)
	}

	return nil
}

// GetActiveSchedules retrieves every active Job_Schedule row joined to its
// active job.
func (r *JobRepository) GetActiveSchedules(ctx context.Context) ([]model.JobSchedule, error) {
	query := `
        SELECT s.job_id, j.job_name, s.schedule_type, s.schedule_time
        FROM Job_Schedule s
        JOIN ETL_Jobs j ON j.job_id = s.job_id
        WHERE s.is_active = 1 AND j.is_active = 1
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query Job_Schedule: %w", err)
	}
	defer rows.Close()

	schedules := []model.JobSchedule{}
	for rows.Next() {
		var s model.JobSchedule
		if err := rows.Scan(&s.JobID, &s.JobName, &s.ScheduleType, &s.ScheduleTime); err != nil {
			return nil, fmt.Errorf("failed to scan Job_Schedule row: %w", err)
		}
		s.IsActive = true
		schedules = append(schedules, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating Job_Schedule: %w", err)
	}

	return schedules, nil
}
