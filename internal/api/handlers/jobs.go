package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"goldwarehouse/internal/api/response"
	"goldwarehouse/internal/apperrors"
	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
)

const defaultHistoryLimit = 50

// JobsHandler serves the job tracking dashboard endpoints: registered
// jobs, run history, and run logs.
type JobsHandler struct {
	jobRepo *repository.JobRepository
}

// NewJobsHandler creates a new JobsHandler
func NewJobsHandler(jobRepo *repository.JobRepository) *JobsHandler {
	return &JobsHandler{jobRepo: jobRepo}
}

// JobResponse represents one registered pipeline job
type JobResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// RunResponse represents one execution instance of a job
type RunResponse struct {
	StatusID         string     `json:"status_id"`
	JobName          string     `json:"job_name"`
	Status           string     `json:"status"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	RecordsProcessed int        `json:"records_processed"`
	ErrorMessage     *string    `json:"error_message"`
}

// LogResponse represents one log line emitted during a run
type LogResponse struct {
	LogID     string    `json:"log_id"`
	StatusID  string    `json:"status_id"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns all registered jobs.
//
// Endpoint: GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobRepo.ListJobs(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to list jobs", err.Error())
		return
	}

	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = JobResponse{ID: j.ID, Name: j.Name, IsActive: j.IsActive}
	}
	response.RespondJSON(w, http.StatusOK, out)
}

// Runs returns the most recent runs of one job, newest first.
//
// Endpoint: GET /api/jobs/{name}/runs?limit=N
func (h *JobsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if _, err := h.jobRepo.GetJob(r.Context(), name); err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			response.RespondError(w, http.StatusNotFound, "job not found", name)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to look up job", err.Error())
		return
	}

	runs, err := h.jobRepo.GetRuns(r.Context(), name, parseLimit(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get job runs", err.Error())
		return
	}

	out := make([]RunResponse, len(runs))
	for i, run := range runs {
		out[i] = toRunResponse(run)
	}
	response.RespondJSON(w, http.StatusOK, out)
}

// Logs returns the most recent log lines of one job, newest first.
//
// Endpoint: GET /api/jobs/{name}/logs?limit=N
func (h *JobsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if _, err := h.jobRepo.GetJob(r.Context(), name); err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			response.RespondError(w, http.StatusNotFound, "job not found", name)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to look up job", err.Error())
		return
	}

	logs, err := h.jobRepo.GetLogs(r.Context(), name, parseLimit(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get job logs", err.Error())
		return
	}

	out := make([]LogResponse, len(logs))
	for i, entry := range logs {
		out[i] = LogResponse{
			LogID:     entry.LogID,
			StatusID:  entry.StatusID,
			Message:   entry.Message,
			Level:     entry.Level,
			CreatedAt: entry.CreatedAt,
		}
	}
	response.RespondJSON(w, http.StatusOK, out)
}

func toRunResponse(run model.JobRun) RunResponse {
	return RunResponse{
		StatusID:         run.StatusID,
		JobName:          run.JobName,
		Status:           run.Status,
		StartTime:        run.StartTime,
		EndTime:          run.EndTime,
		RecordsProcessed: run.RecordsProcessed,
		ErrorMessage:     run.ErrorMessage,
	}
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultHistoryLimit
	}
	return limit
}
