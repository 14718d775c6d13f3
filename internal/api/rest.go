// Package api exposes the benchmark engine over a REST API: snapshot
// polling for dashboards, run control, and archive browsing.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ecs-bench/internal/archive"
	"ecs-bench/internal/bench"
	"ecs-bench/internal/logging"

	"github.com/gorilla/mux"
)

// Handler handles HTTP REST API requests. All control paths go through
// the bench.Controller command queue, so no handler ever touches the
// engine loop's state directly.
type Handler struct {
	controller *bench.Controller
	archive    *archive.Store
	logger     *logging.Logger
	started    time.Time
}

// NewHandler creates a REST handler. archiveStore may be nil when the
// archive is disabled.
func NewHandler(controller *bench.Controller, archiveStore *archive.Store, logger *logging.Logger) *Handler {
	return &Handler{
		controller: controller,
		archive:    archiveStore,
		logger:     logger,
		started:    time.Now(),
	}
}

// StartRunRequest selects what to run: one workload by key, or the whole
// suite.
type StartRunRequest struct {
	Workload string `json:"workload,omitempty"`
	Suite    bool   `json:"suite,omitempty"`
}

// StartRunResponse acknowledges a control request.
type StartRunResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SetEntitiesRequest carries a manual entity-count override.
type SetEntitiesRequest struct {
	Count int `json:"count"`
}

// WorkloadsResponse lists the workload catalog.
type WorkloadsResponse struct {
	Workloads []bench.WorkloadInfo `json:"workloads"`
	Count     int                  `json:"count"`
}

// ArchiveListResponse lists archived report summaries.
type ArchiveListResponse struct {
	Reports []archive.Entry `json:"reports"`
	Count   int             `json:"count"`
}

// ArchiveReportResponse wraps one archived report with its id.
type ArchiveReportResponse struct {
	ID     string        `json:"id"`
	Report *bench.Report `json:"report"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Healthy       bool   `json:"healthy"`
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Version       string `json:"version"`
	Timestamp     int64  `json:"timestamp"`
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.controller.Status())
}

// GET /api/v1/workloads
func (h *Handler) Workloads(w http.ResponseWriter, r *http.Request) {
	infos := h.controller.Workloads()
	h.writeJSONResponse(w, http.StatusOK, WorkloadsResponse{
		Workloads: infos,
		Count:     len(infos),
	})
}

// POST /api/v1/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if !req.Suite && req.Workload == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "either workload or suite must be set")
		return
	}

	var err error
	if req.Suite {
		err = h.controller.StartSuite()
	} else {
		err = h.controller.StartWorkload(req.Workload)
	}
	if err != nil {
		h.logger.Warn("Failed to start run", "error", err)
		h.writeErrorResponse(w, h.controlStatus(err), err.Error())
		return
	}
	h.writeJSONResponse(w, http.StatusAccepted, StartRunResponse{Success: true})
}

// POST /api/v1/runs/abort
func (h *Handler) AbortRun(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Abort(); err != nil {
		h.writeErrorResponse(w, h.controlStatus(err), err.Error())
		return
	}
	h.writeJSONResponse(w, http.StatusOK, StartRunResponse{Success: true})
}

// POST /api/v1/runs/reset
func (h *Handler) ResetRun(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Reset(); err != nil {
		h.writeErrorResponse(w, h.controlStatus(err), err.Error())
		return
	}
	h.writeJSONResponse(w, http.StatusOK, StartRunResponse{Success: true})
}

// PUT /api/v1/runs/entities
func (h *Handler) SetEntities(w http.ResponseWriter, r *http.Request) {
	var req SetEntitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if err := h.controller.SetEntityCount(req.Count); err != nil {
		h.writeErrorResponse(w, h.controlStatus(err), err.Error())
		return
	}
	h.writeJSONResponse(w, http.StatusOK, StartRunResponse{Success: true})
}

// GET /api/v1/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.controller.Report()
	if err != nil {
		switch {
		case errors.Is(err, bench.ErrRunActive):
			h.writeErrorResponse(w, http.StatusConflict, "run still in progress")
		case errors.Is(err, bench.ErrNotRunning):
			h.writeErrorResponse(w, http.StatusNotFound, "no completed run to report")
		default:
			h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSONResponse(w, http.StatusOK, report)
}

// GET /api/v1/archive
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	entries, err := h.archive.List()
	if err != nil {
		h.logger.Error("Failed to list archive", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSONResponse(w, http.StatusOK, ArchiveListResponse{
		Reports: entries,
		Count:   len(entries),
	})
}

// GET /api/v1/archive/latest
func (h *Handler) LatestArchived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	id, report, err := h.archive.Latest()
	if err != nil {
		h.writeArchiveError(w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, ArchiveReportResponse{ID: id, Report: report})
}

// GET /api/v1/archive/{id}
func (h *Handler) GetArchived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	id := mux.Vars(r)["id"]
	report, err := h.archive.Get(id)
	if err != nil {
		h.writeArchiveError(w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, ArchiveReportResponse{ID: id, Report: report})
}

// DELETE /api/v1/archive/{id}
func (h *Handler) DeleteArchived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.archive.Delete(id); err != nil {
		h.writeArchiveError(w, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, StartRunResponse{Success: true})
}

// GET /health and /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Processing health check request")

	h.writeJSONResponse(w, http.StatusOK, HealthResponse{
		Healthy:       true,
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Version:       "1.0.0",
		Timestamp:     time.Now().Unix(),
	})
}

// controlStatus maps engine control errors onto HTTP status codes.
func (h *Handler) controlStatus(err error) int {
	switch {
	case errors.Is(err, bench.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, bench.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, bench.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, bench.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeArchiveError(w http.ResponseWriter, err error) {
	if errors.Is(err, archive.ErrNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("Archive operation failed", "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    statusCode,
		Message: http.StatusText(statusCode),
	})
}

// CORSMiddleware allows dashboard frontends served from other origins.
func (h *Handler) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
