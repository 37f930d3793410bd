package ports

import (
	"bufio"
	"context"
	"strings"

	"github.com/aretw0/flowspec/pkg/domain"
)

// ViewResult is the outcome of reading a unit of work.
// Output is free text containing a "Status: <state>" line.
type ViewResult struct {
	Success bool
	Output  string
	Err     string
}

// EditResult is the outcome of setting the state of a unit of work.
type EditResult struct {
	Success bool
	Err     string
}

// Tracker is the narrow contract the orchestrator needs from a task tracker.
// Implementations report failures in the result rather than as Go errors,
// mirroring a CLI that prints and exits.
type Tracker interface {
	View(ctx context.Context, id string) ViewResult
	Edit(ctx context.Context, id string, status domain.State) EditResult
}

// ParseStatus extracts the state from the first line starting with "Status:".
// A blank status reports ok=false, the same as no status line.
func ParseStatus(output string) (domain.State, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, domain.StatusPrefix); ok {
			status := strings.TrimSpace(rest)
			return domain.State(status), status != ""
		}
	}
	return "", false
}

// FormatStatus renders the status line ParseStatus reads.
func FormatStatus(status domain.State) string {
	return domain.StatusPrefix + " " + string(status)
}
