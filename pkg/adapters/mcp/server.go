// Package mcp exposes the flowspec engine as Model Context Protocol tools so
// agents can list, run and gate workflows without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

// metaWorkflowsURI is the resource listing every meta-workflow.
const metaWorkflowsURI = "flowspec://meta-workflows"

// Engine defines the interface required by the MCP server.
type Engine interface {
	ListMetaWorkflows() []domain.MetaWorkflowSummary
	Run(ctx context.Context, meta, taskID string, execCtx domain.ExecutionContext) *domain.MetaWorkflowResult
	RunWorkflow(ctx context.Context, workflow string, execCtx domain.ExecutionContext) domain.SubWorkflowResult
	Gate(transition string) (validation.Gate, error)
	CheckApproval(transition string, ev validation.Evidence) error
	Validate() error
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("flowspec-mcp", strings.TrimSpace(version),
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, true),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts it down
// when ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_meta_workflows",
		mcp.WithDescription("List the meta-workflows defined in flowspec_workflow.yml with their input and output states."),
	), s.handleList)

	runMeta := mcp.NewTool("run_meta_workflow",
		mcp.WithDescription("Run a meta-workflow. With task_id the task must be in the meta-workflow's input state and is moved through each step's output state."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Meta-workflow name, e.g. research or build")),
		mcp.WithString("task_id", mcp.Description("Tracker task id (optional)")),
		mcp.WithString("context", mcp.Description("JSON object seeding the execution context (optional)")),
		mcp.WithOutputSchema[domain.MetaWorkflowResult](),
	)
	s.mcpServer.AddTool(runMeta, mcp.NewStructuredToolHandler(s.handleRunMeta))

	runWorkflow := mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a single workflow outside of any meta-workflow."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name, e.g. assess")),
		mcp.WithString("task_id", mcp.Description("Tracker task id (optional)")),
		mcp.WithString("context", mcp.Description("JSON object seeding the execution context (optional)")),
		mcp.WithOutputSchema[domain.SubWorkflowResult](),
	)
	s.mcpServer.AddTool(runWorkflow, mcp.NewStructuredToolHandler(s.handleRunWorkflow))

	s.mcpServer.AddTool(mcp.NewTool("check_transition",
		mcp.WithDescription("Describe the approval a transition requires before work may proceed."),
		mcp.WithString("transition", mcp.Required(), mcp.Description("Transition name, e.g. specify")),
	), s.handleCheckTransition)

	s.mcpServer.AddTool(mcp.NewTool("approve",
		mcp.WithDescription("Check approval evidence against a transition's validation mode."),
		mcp.WithString("transition", mcp.Required(), mcp.Description("Transition name")),
		mcp.WithString("keyword", mcp.Description("Approval keyword, for KEYWORD modes")),
		mcp.WithBoolean("pr_merged", mcp.Description("Whether the pull request was merged, for PULL_REQUEST modes")),
	), s.handleApprove)

	s.mcpServer.AddTool(mcp.NewTool("validate_config",
		mcp.WithDescription("Validate the loaded workflow configuration."),
	), s.handleValidate)
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.ListMetaWorkflows())
}

func (s *Server) handleRunMeta(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.MetaWorkflowResult, error) {
	name, _ := args["name"].(string)
	taskID, _ := args["task_id"].(string)
	execCtx, err := parseContext(args)
	if err != nil {
		return domain.MetaWorkflowResult{}, err
	}

	res := s.engine.Run(ctx, name, taskID, execCtx)
	if !res.Success {
		s.logger.Warn("MCP run_meta_workflow failed", "meta_workflow", name, "err", res.Error)
	}
	return *res, nil
}

func (s *Server) handleRunWorkflow(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.SubWorkflowResult, error) {
	name, _ := args["name"].(string)
	execCtx, err := parseContext(args)
	if err != nil {
		return domain.SubWorkflowResult{}, err
	}
	if taskID, _ := args["task_id"].(string); taskID != "" {
		execCtx[domain.KeyTaskID] = taskID
	}
	return s.engine.RunWorkflow(ctx, name, execCtx), nil
}

func (s *Server) handleCheckTransition(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gate, err := s.engine.Gate(request.GetString("transition", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(gate)
}

func (s *Server) handleApprove(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition := request.GetString("transition", "")
	ev := validation.Evidence{
		Keyword:  request.GetString("keyword", ""),
		PRMerged: request.GetBool("pr_merged", false),
	}
	if err := s.engine.CheckApproval(transition, ev); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("transition %s approved", transition)), nil
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("configuration is valid"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(metaWorkflowsURI, "Meta-workflows",
		mcp.WithMIMEType("application/json"),
	), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.ListMetaWorkflows())
		if err != nil {
			return nil, fmt.Errorf("failed to encode meta-workflows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      metaWorkflowsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// parseContext decodes the optional "context" argument, accepting either a
// JSON string or an already decoded object.
func parseContext(args map[string]interface{}) (domain.ExecutionContext, error) {
	execCtx := domain.ExecutionContext{}
	switch v := args["context"].(type) {
	case nil:
	case string:
		if strings.TrimSpace(v) == "" {
			break
		}
		if err := json.Unmarshal([]byte(v), &execCtx); err != nil {
			return nil, fmt.Errorf("invalid context: %w", err)
		}
	case map[string]interface{}:
		for k, val := range v {
			execCtx[k] = val
		}
	default:
		return nil, fmt.Errorf("invalid context: expected JSON object, got %T", v)
	}
	return execCtx, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
