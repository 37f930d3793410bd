// Package process runs workflow steps as local processes.
//
// Only allow-listed commands run: each workflow maps to one registered command
// and its fixed arguments. Step data never reaches the command line; it is
// passed through FLOWSPEC_* environment variables instead.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// EnvPrefix starts every variable set for a step.
const EnvPrefix = "FLOWSPEC_"

// DefaultGracePeriod is how long a cancelled process may take to exit after the interrupt.
const DefaultGracePeriod = 5 * time.Second

var unsafeKey = regexp.MustCompile(`[^A-Z0-9_]`)

// Executor implements ports.Executor over an allow-list of commands.
type Executor struct {
	tools    map[string]Tool
	baseDir  string
	grace    time.Duration
	fallback ports.Executor
	logger   *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithTools populates the allow-list from a loaded tools file.
func WithTools(tools map[string]Tool) Option {
	return func(e *Executor) {
		maps.Copy(e.tools, tools)
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(e *Executor) {
		e.baseDir = dir
	}
}

// WithGracePeriod sets how long a cancelled process may run before it is killed.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Executor) {
		e.grace = d
	}
}

// WithFallback delegates workflows without a registered tool. Without a
// fallback those workflows fail.
func WithFallback(fallback ports.Executor) Option {
	return func(e *Executor) {
		e.fallback = fallback
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		tools:  make(map[string]Tool),
		grace:  DefaultGracePeriod,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a trusted command for workflow to the allow-list.
func (e *Executor) Register(workflow, command string, args ...string) {
	e.tools[workflow] = Tool{Workflow: workflow, Command: command, Args: args}
}

// Workflows lists the workflows with a registered tool, sorted.
func (e *Executor) Workflows() []string {
	return slices.Sorted(maps.Keys(e.tools))
}

// Execute runs the tool registered for the step's workflow.
//
// Stdout may be a JSON object {"artifacts": [...], "context": {...}}, which
// becomes the step output. Any other stdout is ignored.
func (e *Executor) Execute(ctx context.Context, step domain.Step) (domain.StepOutput, error) {
	tool, ok := e.tools[step.Workflow.Name]
	if !ok {
		if e.fallback != nil {
			return e.fallback.Execute(ctx, step)
		}
		return domain.StepOutput{}, fmt.Errorf("process tool not registered for workflow: %s", step.Workflow.Name)
	}

	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	cmd.Dir = e.baseDir
	cmd.Env = append(cmd.Environ(), stepEnv(tool, step)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = e.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Running workflow tool", "workflow", step.Workflow.Name, "command", tool.Command)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.StepOutput{}, fmt.Errorf("workflow %s: %w", step.Workflow.Name, ctxErr)
		}
		return domain.StepOutput{}, fmt.Errorf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.Bytes()), nil
}

// stepEnv renders the step as environment variables. Context values become
// FLOWSPEC_ARG_<KEY>; composite values are JSON encoded.
func stepEnv(tool Tool, step domain.Step) []string {
	env := []string{
		EnvPrefix + "WORKFLOW=" + step.Workflow.Name,
		EnvPrefix + "TASK_ID=" + step.TaskID,
		EnvPrefix + "AGENTS=" + strings.Join(step.Workflow.Agents, ","),
		EnvPrefix + "OUTPUT_STATE=" + string(step.Workflow.OutputState),
	}
	for _, k := range slices.Sorted(maps.Keys(step.Context)) {
		key := unsafeKey.ReplaceAllString(strings.ToUpper(k), "_")
		env = append(env, fmt.Sprintf("%sARG_%s=%s", EnvPrefix, key, envValue(step.Context[k])))
	}
	for _, k := range slices.Sorted(maps.Keys(tool.Environment)) {
		env = append(env, k+"="+tool.Environment[k])
	}
	return env
}

func envValue(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

func parseOutput(stdout []byte) domain.StepOutput {
	trimmed := bytes.TrimSpace(stdout)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return domain.StepOutput{}
	}
	var out domain.StepOutput
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return domain.StepOutput{}
	}
	return out
}
