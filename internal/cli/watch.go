package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowspec"
)

// WatchConfig reloads the engine on config changes until ctx is done,
// reporting each reload. It returns once the watcher stops.
func WatchConfig(ctx context.Context, engine *flowspec.Engine, logger *slog.Logger) error {
	changes, err := engine.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Starting Watcher", "path", engine.Root())
	for path := range changes {
		logger.Info("Change detected, configuration reloaded", "path", path)
		printSystemMessage("Change detected in '%s'.", path)
		if err := engine.Validate(); err != nil {
			logger.Warn("Reloaded configuration has problems", "err", err)
		}
	}
	return nil
}
