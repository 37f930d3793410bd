// Package backlog drives the Backlog.md command line as a task tracker.
//
//	backlog task view <id> --plain
//	backlog task edit <id> -s <status>
//
// Transient failures (busy files, timeouts) are retried with exponential backoff.
package backlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// DefaultBinary is the CLI looked up on PATH.
const DefaultBinary = "backlog"

const (
	defaultCallTimeout = 30 * time.Second
	defaultMaxElapsed  = 10 * time.Second
)

// RunFunc executes one CLI invocation and returns its stdout and stderr.
type RunFunc func(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)

// Tracker implements ports.Tracker over the backlog CLI.
type Tracker struct {
	binary      string
	dir         string
	run         RunFunc
	callTimeout time.Duration
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithBinary overrides the CLI executable.
func WithBinary(path string) Option {
	return func(t *Tracker) {
		t.binary = path
	}
}

// WithDir sets the project directory the CLI runs in.
func WithDir(dir string) Option {
	return func(t *Tracker) {
		t.dir = dir
	}
}

// WithRunner replaces process execution, mainly for tests.
func WithRunner(run RunFunc) Option {
	return func(t *Tracker) {
		t.run = run
	}
}

// WithCallTimeout bounds every CLI invocation.
func WithCallTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		t.callTimeout = d
	}
}

// WithBackOff sets the retry policy. The factory must return a fresh
// instance per call since BackOff implementations are stateful.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(t *Tracker) {
		t.newBackOff = factory
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates a Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		binary:      DefaultBinary,
		run:         execRun,
		callTimeout: defaultCallTimeout,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = defaultMaxElapsed
			return bo
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// View runs "backlog task view <id> --plain".
func (t *Tracker) View(ctx context.Context, id string) ports.ViewResult {
	out, err := t.call(ctx, "task", "view", id, "--plain")
	if err != nil {
		return ports.ViewResult{Err: err.Error()}
	}
	return ports.ViewResult{Success: true, Output: out}
}

// Edit runs "backlog task edit <id> -s <status>".
func (t *Tracker) Edit(ctx context.Context, id string, status domain.State) ports.EditResult {
	if _, err := t.call(ctx, "task", "edit", id, "-s", string(status)); err != nil {
		return ports.EditResult{Err: err.Error()}
	}
	return ports.EditResult{Success: true}
}

func (t *Tracker) call(ctx context.Context, args ...string) (string, error) {
	var stdout string
	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
		defer cancel()

		out, errOut, err := t.run(callCtx, t.dir, t.binary, args...)
		if err == nil {
			stdout = out
			return nil
		}
		err = describe(err, errOut)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", t.callTimeout, err)
		} else if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		t.logger.Debug("Retrying backlog call", "args", args, "attempt", attempt, "err", err)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(t.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return stdout, nil
}

func describe(err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s (%w)", msg, err)
	}
	return err
}

// isRetryable reports failures that may clear on their own.
func isRetryable(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"resource busy", "locked", "temporarily unavailable", "ebusy", "eagain"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func execRun(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
