package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hsebcm/calendar-sync/internal/dataset"
	"github.com/hsebcm/calendar-sync/internal/feed"
	"github.com/hsebcm/calendar-sync/internal/model"
	"github.com/hsebcm/calendar-sync/internal/poller"
	"github.com/hsebcm/calendar-sync/internal/version"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic sync and serve the dataset",
		Long: `Start the sync poller and the feed server.

The dataset starts from fallback data and is replaced by each successful
sync. Endpoints: /events, /ws, /health and the metrics path.

Example:
  hsebcm serve --config hsebcm.yaml
  hsebcm serve --port 9090 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (overrides server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	a, err := newApp(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	logger.Info("starting hsebcm",
		"version", version.Version,
		"commit", version.Commit,
		"config", opts.ConfigPath,
	)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fallback, err := loadFallback(a.cfg.FallbackPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fallback dataset", err)
	}
	holder := dataset.NewHolder(fallback, logger)
	logger.Info("fallback dataset loaded", "events", len(fallback))

	s, err := a.buildSyncer()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sources", err)
	}

	// Feed server
	port := a.cfg.Server.Port
	if opts.Port > 0 {
		port = opts.Port
	}
	feedServer := feed.NewServer(feed.Config{MetricsPath: a.cfg.Server.MetricsPath}, holder, s, logger)
	for name, check := range a.checks {
		feedServer.AddCheck(name, check)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           feedServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting feed server", "port", port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Sync poller
	p := poller.New(poller.Config{
		Interval: a.cfg.Sync.CheckInterval,
		Timeout:  a.cfg.Sync.SourceTimeout + 30*time.Second,
	}, s, holder, logger)
	if err := p.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start poller", err)
	}

	logger.Info("hsebcm running",
		"sources", s.Sources(),
		"events_url", fmt.Sprintf("http://localhost:%d/events", port),
		"health_url", fmt.Sprintf("http://localhost:%d/health", port),
	)

	// Wait for shutdown
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("feed server error", "err", err)
		runErr = WrapExitError(ExitCommandError, "feed server failed", err)
		cancel()
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop timed out", "err", err)
	}
	if err := feedServer.Close(shutdownCtx); err != nil {
		logger.Warn("feed clients did not close in time", "err", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("feed server shutdown error", "err", err)
	}

	logger.Info("hsebcm stopped")
	return runErr
}

func loadFallback(path string) ([]model.CanonicalEvent, error) {
	if path == "" {
		return dataset.DefaultFallback()
	}
	return dataset.LoadFallback(path)
}
