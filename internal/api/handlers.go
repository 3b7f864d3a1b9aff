// File: internal/api/handlers.go
package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

//go:embed static/index.html
var indexHTML []byte

// Handlers serves the trigger endpoints.
type Handlers struct {
	log     *zap.Logger
	jobs    JobService
	metrics http.Handler
	// target is the URL runs started over HTTP are pointed at.
	target string
}

// NewHandlers creates the handlers. metrics may be nil, in which case
// /metrics is not served.
func NewHandlers(logger *zap.Logger, jobs JobService, metrics http.Handler, target string) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		log:     logger.Named("api"),
		jobs:    jobs,
		metrics: metrics,
		target:  target,
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/healthz", h.HandleHealthCheck)
	r.Post("/run", h.HandleRun)
	r.Get("/runs", h.HandleListRuns)
	r.Get("/runs/{runID}", h.HandleGetRun)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
}

func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleRun starts a run in the background and answers right away.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Start(h.target)
	if err != nil {
		h.log.Error("Failed to start run", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respond(w, http.StatusAccepted, Response{
		Status:  "running",
		Message: "Automation started",
		Data:    job,
	})
}

func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	job, ok := h.jobs.Get(id)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Run ID not found in active/recent run registry.")
		return
	}
	h.respond(w, http.StatusOK, Response{Status: "success", Data: job})
}

func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, Response{Status: "success", Data: h.jobs.List()})
}

func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, Response{Status: "error", Error: message})
}

func (h *Handlers) respond(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
