package redis

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// editScript sets the status only for tasks that already exist.
var editScript = backend.NewScript(`
	if redis.call("exists", KEYS[1]) == 0 then
		return 0
	end
	redis.call("hset", KEYS[1], "status", ARGV[1])
	redis.call("rpush", KEYS[2], ARGV[1])
	return 1
`)

// Tracker implements ports.Tracker over Redis. Each task is a hash at
// <prefix>task:<id> with "title" and "status" fields.
type Tracker struct {
	client backend.UniversalClient
	prefix string
}

// NewTracker creates a Tracker using client.
func NewTracker(client backend.UniversalClient, opts ...Option) *Tracker {
	o := apply(opts)
	return &Tracker{client: client, prefix: o.prefix}
}

func (t *Tracker) key(id string) string     { return t.prefix + "task:" + id }
func (t *Tracker) history(id string) string { return t.prefix + "task:" + id + ":history" }

// Create stores a new task, overwriting any existing one.
func (t *Tracker) Create(ctx context.Context, id, title string, status domain.State) error {
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, t.key(id), "title", title, "status", string(status))
	pipe.Del(ctx, t.history(id))
	pipe.RPush(ctx, t.history(id), string(status))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error creating task %s: %w", id, err)
	}
	return nil
}

// View renders the task as plain text with a Status line.
func (t *Tracker) View(ctx context.Context, id string) ports.ViewResult {
	fields, err := t.client.HGetAll(ctx, t.key(id)).Result()
	if err != nil {
		return ports.ViewResult{Err: fmt.Sprintf("redis error: %v", err)}
	}
	status, ok := fields["status"]
	if !ok {
		return ports.ViewResult{Err: fmt.Sprintf("task %s not found", id)}
	}
	title := fields["title"]
	if title == "" {
		title = id
	}
	out := fmt.Sprintf("Task %s - %s\n\n%s\n", id, title, ports.FormatStatus(domain.State(status)))
	return ports.ViewResult{Success: true, Output: out}
}

// Edit moves an existing task to status.
func (t *Tracker) Edit(ctx context.Context, id string, status domain.State) ports.EditResult {
	n, err := editScript.Run(ctx, t.client, []string{t.key(id), t.history(id)}, string(status)).Int()
	if err != nil && !errors.Is(err, backend.Nil) {
		return ports.EditResult{Err: fmt.Sprintf("redis error: %v", err)}
	}
	if n == 0 {
		return ports.EditResult{Err: fmt.Sprintf("task %s not found", id)}
	}
	return ports.EditResult{Success: true}
}

// History returns every status the task has held, oldest first.
func (t *Tracker) History(ctx context.Context, id string) ([]domain.State, error) {
	values, err := t.client.LRange(ctx, t.history(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.State, len(values))
	for i, v := range values {
		out[i] = domain.State(v)
	}
	return out, nil
}
