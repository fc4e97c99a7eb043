package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyfeed/internal/blob"
	"github.com/dukerupert/familyfeed/internal/cleanup"
	"github.com/dukerupert/familyfeed/internal/database"
	"github.com/dukerupert/familyfeed/internal/logging"
	"github.com/dukerupert/familyfeed/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, closer := logging.Setup(cfg.LogOptions())
			defer closer.Close()

			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			blobs := blob.NewS3Store(cfg.BlobConfig())
			if blobs == nil {
				logger.Warn("s3 not configured; birth chart uploads disabled")
			}

			srv := server.New(db, blobs, cfg, logger)

			sched, err := cleanup.New(cfg.Cleanup.Schedule, srv.SessionStore(), srv.RateLimiter(), logger.With("component", "cleanup"))
			if err != nil {
				return err
			}
			if cfg.Backup.Schedule != "" {
				snap := newSnapshotter(db, cfg, logger)
				if err := sched.Add(cfg.Backup.Schedule, "database snapshot", cfg.Backup.Timeout, func(ctx context.Context) error {
					_, err := snap.Snapshot(ctx)
					return err
				}); err != nil {
					return err
				}
			}
			sched.Start()
			defer sched.Stop()

			httpServer := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Router(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: cfg.Roster.UploadTimeout + cfg.Roster.SaveTimeout + 15*time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("familyfeed listening", "addr", cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
