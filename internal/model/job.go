package model

import "time"

// Job run statuses. A run moves RUNNING -> SUCCESS or RUNNING -> FAILED and
// never changes again.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Log levels for the Logs control table.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// Schedule types for the Job_Schedule control table.
const (
	ScheduleDaily   = "DAILY"
	ScheduleWeekly  = "WEEKLY"
	ScheduleMonthly = "MONTHLY"
)

// Job is one row of ETL_Jobs: a named pipeline stage.
type Job struct {
	ID       string
	Name     string
	IsActive bool
}

// JobRun is one row of Job_Status: a single execution instance of a job,
// created at start and mutated exactly once at its end.
type JobRun struct {
	StatusID         string
	JobID            string
	JobName          string
	Status           string
	StartTime        time.Time
	EndTime          *time.Time
	RecordsProcessed int
	ErrorMessage     *string
}

// LogEntry is one row of the Logs control table. Append-only, many per run.
type LogEntry struct {
	LogID     string
	JobID     string
	StatusID  string
	Message   string
	Level     string
	CreatedAt time.Time
}

// JobSchedule is one row of Job_Schedule: a time-of-day trigger for a job.
type JobSchedule struct {
	JobID        string
	JobName      string
	ScheduleType string
	ScheduleTime string // HH:MM
	IsActive     bool
}

// NotificationConfig is one row of Notification_Config: who to notify for a
// job, and on which outcomes. Delivery is handled outside this system.
type NotificationConfig struct {
	ID               string
	JobID            string
	NotificationType string
	EmailRecipient   string
	NotifyOnSuccess  bool
	NotifyOnFailure  bool
}

// JobNotification is one row of Job_Notifications, emitted by the tracker
// when a run ends with an outcome a recipient subscribed to.
type JobNotification struct {
	ID               string
	JobID            string
	StatusID         string
	NotificationType string
	Recipient        string
	Message          string
	CreatedAt        time.Time
}
