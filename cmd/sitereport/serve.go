package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sitereport/internal/adapters/reports"
	"sitereport/internal/blob"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report API and run the export worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the API on ln until ctx is cancelled, then drains in-flight
// requests and export jobs.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	p, err := a.buildPipeline(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = p.Close() }()

	store, err := blob.Open(ctx, a.cfg.Blob.Store())
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("open blob store: %w", err)
	}

	worker := reports.NewWorker(p.analysis, reports.NewBlobObjectStore(store),
		reports.WithWorkerLogger(a.logger),
		reports.WithQueueSize(a.cfg.Server.ExportQueue),
	)
	worker.Start()

	handler := reports.NewHandler(p.analysis, p.analysis.Registry())
	handler.Exports = worker
	handler.Artifacts = worker
	handler.Archive = store
	handler.Logger = a.logger

	srv := &http.Server{
		Handler:      reports.LogRequests(reports.Routes(handler, p.gatherer), a.logger),
		ReadTimeout:  a.cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: a.cfg.Server.WriteTimeoutDuration(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("report api listening",
		"addr", ln.Addr().String(),
		"source", a.cfg.Source.Driver,
		"blob", string(store.Driver()),
	)

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if serveErr == nil {
		serveErr = <-errCh
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		a.logger.Warn("export worker stop", "error", err)
	}
	a.logger.Info("report api stopped")

	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}
