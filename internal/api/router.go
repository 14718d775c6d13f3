package api

import (
	"net/http"

	"ecs-bench/internal/logging"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all REST API routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(logging.LoggingMiddleware(h.logger))
	router.Use(h.CORSMiddleware)

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Engine state and catalog
	v1.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	v1.HandleFunc("/workloads", h.Workloads).Methods(http.MethodGet)

	// Run control
	v1.HandleFunc("/runs", h.StartRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs/abort", h.AbortRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs/reset", h.ResetRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs/entities", h.SetEntities).Methods(http.MethodPut)

	// Reports and history
	v1.HandleFunc("/report", h.GetReport).Methods(http.MethodGet)
	v1.HandleFunc("/archive", h.ListArchive).Methods(http.MethodGet)
	v1.HandleFunc("/archive/latest", h.LatestArchived).Methods(http.MethodGet)
	v1.HandleFunc("/archive/{id}", h.GetArchived).Methods(http.MethodGet)
	v1.HandleFunc("/archive/{id}", h.DeleteArchived).Methods(http.MethodDelete)

	v1.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// CORS preflight
	v1.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/", h.Root).Methods(http.MethodGet)

	return router
}

// Root describes the service and its endpoints.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service":     "ECS Benchmark Engine",
		"version":     "1.0.0",
		"api_version": "v1",
		"endpoints": map[string]interface{}{
			"health":    "/health or /api/v1/health",
			"status":    "GET /api/v1/status",
			"workloads": "GET /api/v1/workloads",
			"run_control": map[string]string{
				"start":        "POST /api/v1/runs",
				"abort":        "POST /api/v1/runs/abort",
				"reset":        "POST /api/v1/runs/reset",
				"set_entities": "PUT /api/v1/runs/entities",
			},
			"reports": map[string]string{
				"current": "GET /api/v1/report",
				"archive": "GET /api/v1/archive",
				"latest":  "GET /api/v1/archive/latest",
				"by_id":   "GET /api/v1/archive/{id}",
				"delete":  "DELETE /api/v1/archive/{id}",
			},
		},
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}
