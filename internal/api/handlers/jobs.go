package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/api/middleware"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/jobs"
)

// ExportsHandler queues statement exports.
type ExportsHandler struct {
	publisher jobs.Publisher
	sinks     map[export.Sink]bool
	log       zerolog.Logger
}

// NewExportsHandler creates a new exports handler accepting the given sinks.
func NewExportsHandler(publisher jobs.Publisher, sinks []export.Sink, log zerolog.Logger) *ExportsHandler {
	enabled := make(map[export.Sink]bool, len(sinks))
	for _, s := range sinks {
		enabled[s] = true
	}
	return &ExportsHandler{publisher: publisher, sinks: enabled, log: log}
}

// Create handles POST /api/exports
func (h *ExportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sink string `json:"sink"`
	}
	if !decode(w, r, &req) {
		return
	}
	sink, err := export.ParseSink(req.Sink)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown export sink")
		return
	}
	if !h.sinks[sink] {
		middleware.WriteError(w, http.StatusBadRequest, "Export sink is not configured")
		return
	}

	store := middleware.SessionFrom(r.Context())
	if store == nil {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}
	sess, ok := store.Current()
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}

	job := &jobs.ExportJob{
		CustomerID: sess.UserID,
		Sink:       string(sink),
		Token:      sess.Token,
	}
	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("sink", job.Sink).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"sink":   job.Sink,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints. Customers only see their own jobs.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

func customerID(r *http.Request) (string, bool) {
	store := middleware.SessionFrom(r.Context())
	if store == nil {
		return "", false
	}
	sess, ok := store.Current()
	return sess.UserID, ok
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")

	owner, ok := customerID(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil || job.CustomerID != owner {
		if err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := customerID(r)
	if !ok {
		middleware.WriteUnauthorized(w, "Please log in to continue")
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		CustomerID: owner,
		Status:     jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
