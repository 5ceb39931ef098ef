package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/jobs"
	"github.com/dvloznov/household-budget/internal/suggest"
)

// ReportsHandler handles the dashboard summary, report delivery, Notion
// export, delivery job status and category suggestions.
type ReportsHandler struct {
	svc        *budget.Service
	publisher  jobs.Publisher
	store      jobs.JobStore
	suggestCfg config.SuggestConfig
}

// NewReportsHandler creates a new reports handler. With a nil publisher
// reports are sent inline and Notion export is unavailable.
func NewReportsHandler(svc *budget.Service, publisher jobs.Publisher, store jobs.JobStore, suggestCfg config.SuggestConfig) *ReportsHandler {
	return &ReportsHandler{svc: svc, publisher: publisher, store: store, suggestCfg: suggestCfg}
}

// GetSummary handles GET /api/summary
func (h *ReportsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toSummary(h.svc.Summary(window)))
}

// GetCategoryStatus handles GET /api/summary/{category}
func (h *ReportsHandler) GetCategoryStatus(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := h.svc.CategoryStatus(r.PathValue("category"), window)
	if err != nil {
		writeServiceError(w, r, "Failed to compute category status", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toStatus(st))
}

type deliveryRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	DryRun bool   `json:"dry_run"`
}

func (h *ReportsHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.DeliveryJob) {
	if _, err := job.Window(); err != nil {
		writeServiceError(w, r, "Invalid delivery window", err)
		return
	}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeServiceError(w, r, "Failed to enqueue delivery", err)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// SendReport handles POST /api/reports
func (h *ReportsHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	job := &jobs.DeliveryJob{Type: jobs.JobTypeSendReport, Start: req.Start, End: req.End}

	if h.publisher != nil {
		h.enqueue(w, r, job)
		return
	}

	window, err := job.Window()
	if err != nil {
		writeServiceError(w, r, "Invalid report window", err)
		return
	}
	sum, err := h.svc.SendReport(r.Context(), window)
	if err != nil {
		writeServiceError(w, r, "Failed to send report", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toSummary(sum))
}

// ExportNotion handles POST /api/exports/notion
func (h *ReportsHandler) ExportNotion(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Notion export is not configured")
		return
	}
	var req deliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.enqueue(w, r, &jobs.DeliveryJob{Type: jobs.JobTypeExportNotion, Start: req.Start, End: req.End, DryRun: req.DryRun})
}

// ListJobs handles GET /api/jobs
func (h *ReportsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": []*jobs.DeliveryJob{}, "count": 0})
		return
	}

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
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

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "Failed to list jobs", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *ReportsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "Failed to get job", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// Suggest handles POST /api/suggestions. Suggestions are advice; nothing
// is written.
func (h *ReportsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sg, err := suggest.New(ctx, h.suggestCfg, h.svc.TrainingSet())
	if err != nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	out, err := h.svc.Suggest(ctx, sg)
	if err != nil {
		writeServiceError(w, r, "Failed to compute suggestions", err)
		return
	}
	if out == nil {
		out = []suggest.Suggestion{}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}
