package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec"
	"github.com/aretw0/flowspec/internal/cli"
	"github.com/aretw0/flowspec/internal/logging"
	httpAdapter "github.com/aretw0/flowspec/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the engine as a JSON API over HTTP, with Prometheus metrics at
/metrics and lifecycle events as Server-Sent Events at /events.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		watch, _ := cmd.Flags().GetBool("watch")

		streams := httpAdapter.NewStreamManager(logging.NewNop())
		rt, logger, err := newRuntime(cmd, streams)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := &http.Server{
			Addr: ":" + port,
			Handler: httpAdapter.NewHandler(rt.Engine,
				httpAdapter.WithStreams(streams),
				httpAdapter.WithMetricsHandler(rt.Metrics.Handler()),
				httpAdapter.WithVersion(strings.TrimSpace(flowspec.Version)),
				httpAdapter.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if watch {
			go func() {
				if err := cli.WatchConfig(ctx, rt.Engine, logger); err != nil {
					logger.Error("Config watcher stopped", "err", err)
				}
			}()
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting flowspec server", "addr", srv.Addr, "root", rt.Engine.Root())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Shutting down", "signal", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("flowspec server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("watch", false, "Reload the configuration when it changes on disk")
}
