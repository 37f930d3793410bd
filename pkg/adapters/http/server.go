// Package http exposes the flowspec engine over a small JSON API.
//
//	GET  /health
//	GET  /info
//	GET  /meta-workflows
//	POST /meta-workflows/{name}/run
//	POST /workflows/{name}/run
//	GET  /transitions/{name}/validation
//	POST /transitions/{name}/approve
//	GET  /config/validate
//	GET  /events            (SSE; ?task_id= filters lifecycle events)
//	GET  /metrics           (when a metrics handler is configured)
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

// Engine is the subset of the flowspec engine served over HTTP.
type Engine interface {
	ListMetaWorkflows() []domain.MetaWorkflowSummary
	Run(ctx context.Context, meta, taskID string, execCtx domain.ExecutionContext) *domain.MetaWorkflowResult
	RunWorkflow(ctx context.Context, workflow string, execCtx domain.ExecutionContext) domain.SubWorkflowResult
	Gate(transition string) (validation.Gate, error)
	CheckApproval(transition string, ev validation.Evidence) error
	Validate() error
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves an Engine.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	version string
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager, typically one also registered as an event sink.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{Engine: engine, version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Handler returns the routed, CORS-enabled handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/meta-workflows", s.ListMetaWorkflows)
	r.Post("/meta-workflows/{name}/run", s.RunMetaWorkflow)
	r.Post("/workflows/{name}/run", s.RunWorkflow)
	r.Get("/transitions/{name}/validation", s.GetValidation)
	r.Post("/transitions/{name}/approve", s.Approve)
	r.Get("/config/validate", s.ValidateConfig)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunRequest is the body of the run endpoints.
type RunRequest struct {
	TaskID  string                  `json:"task_id,omitempty"`
	Context domain.ExecutionContext `json:"context,omitempty"`
}

// ApproveRequest is the body of POST /transitions/{name}/approve.
type ApproveRequest struct {
	Keyword  string `json:"keyword,omitempty"`
	PRMerged bool   `json:"pr_merged,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":            "flowspec-http",
		"version":        s.version,
		"schema_version": domain.SchemaVersion,
	})
}

// ListMetaWorkflows handles GET /meta-workflows.
func (s *Server) ListMetaWorkflows(w http.ResponseWriter, _ *http.Request) {
	list := s.Engine.ListMetaWorkflows()
	if list == nil {
		list = []domain.MetaWorkflowSummary{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

// RunMetaWorkflow handles POST /meta-workflows/{name}/run.
func (s *Server) RunMetaWorkflow(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	res := s.Engine.Run(r.Context(), name, body.TaskID, body.Context)
	s.writeJSON(w, statusFor(res.Success, res.Err), res)
}

// RunWorkflow handles POST /workflows/{name}/run.
func (s *Server) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	execCtx := body.Context.Clone()
	if body.TaskID != "" {
		execCtx[domain.KeyTaskID] = body.TaskID
	}
	res := s.Engine.RunWorkflow(r.Context(), chi.URLParam(r, "name"), execCtx)
	s.writeJSON(w, statusFor(res.Success, res.Err), res)
}

// GetValidation handles GET /transitions/{name}/validation.
func (s *Server) GetValidation(w http.ResponseWriter, r *http.Request) {
	gate, err := s.Engine.Gate(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, statusFor(false, err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, gate)
}

// Approve handles POST /transitions/{name}/approve.
func (s *Server) Approve(w http.ResponseWriter, r *http.Request) {
	var body ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.Engine.CheckApproval(name, validation.Evidence{Keyword: body.Keyword, PRMerged: body.PRMerged}); err != nil {
		s.writeError(w, statusFor(false, err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transition": name, "approved": true})
}

// ValidateConfig handles GET /config/validate.
func (s *Server) ValidateConfig(w http.ResponseWriter, _ *http.Request) {
	err := s.Engine.Validate()
	if err == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"valid": true, "errors": []string{}})
		return
	}
	issues := []string{}
	for _, e := range domain.ValidationErrors(err) {
		issues = append(issues, e.Error())
	}
	if len(issues) == 0 {
		issues = append(issues, err.Error())
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "errors": issues})
}

// SubscribeEvents handles GET /events (SSE). Config reloads arrive as
// "event: reload"; lifecycle events as plain data frames.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	reloads, err := s.Engine.Watch(r.Context())
	if err != nil {
		s.logger.Warn("SSE: Config watch unavailable", "err", err)
		reloads = nil
	}
	events, cancel := s.Streams.Subscribe(r.URL.Query().Get("task_id"))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case path, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", path)
			flusher.Flush()
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) decodeRun(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var body RunRequest
	if r.ContentLength == 0 {
		return body, true
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		s.logger.Warn("Run: Invalid request body", "err", err)
		return body, false
	}
	return body, true
}

// statusFor maps an engine outcome to an HTTP status.
func statusFor(success bool, err error) int {
	switch {
	case success:
		return http.StatusOK
	case errors.Is(err, domain.ErrMetaWorkflowNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrTransitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrApprovalRequired):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConfigNotFound), errors.Is(err, domain.ErrTrackerUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
