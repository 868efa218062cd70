package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/builder"
	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/config"
	"github.com/alfredjeanlab/chunks/internal/events"
	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/resolve"
	"github.com/alfredjeanlab/chunks/internal/server"
	"github.com/alfredjeanlab/chunks/internal/store/postgres"
	chunksync "github.com/alfredjeanlab/chunks/internal/sync"
)

// loadEnvFile loads KEY=VALUE pairs into the environment. A missing
// default file is ignored; an explicitly requested one must load.
func loadEnvFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(path); err != nil && cmd.Flags().Changed("env-file") {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the chunks server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an API client.
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		if err := loadEnvFile(cmd); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		specs, err := config.LoadBuilders(cfg.BuildersFile)
		if err != nil {
			return err
		}
		chain, err := builder.NewRegistry(logger).Load(specs)
		if err != nil {
			return fmt.Errorf("load builders: %w", err)
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		m := metrics.New()
		mem := cache.NewMemory(cfg.CacheSize, cfg.CacheSweep)
		mem.Start()

		// Create event bus.
		var (
			publisher events.Publisher = &events.NoopPublisher{}
			bus       *events.NATSBus
		)
		if cfg.NATSURL != "" {
			bus, err = events.NewNATSBus(cfg.NATSURL)
			if err != nil {
				mem.Stop()
				store.Close()
				return err
			}
			publisher = bus
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (CHUNKS_NATS_URL not set)")
		}

		c := cache.NewInstrumented(mem, m)
		svc := resolve.New(store, c, chain, resolve.Options{
			DefaultTTL: cfg.CacheTTL,
			Wrap:       cfg.Wrap,
			Source:     cfg.InstanceID,
			Publisher:  publisher,
			Metrics:    m,
			Logger:     logger,
		})

		// Cross-instance cache invalidation.
		var invCancel context.CancelFunc
		if bus != nil {
			var invCtx context.Context
			invCtx, invCancel = context.WithCancel(context.Background())
			inv := resolve.NewInvalidator(c, cfg.InstanceID, m, logger)
			go func() {
				if err := inv.Run(invCtx, bus); err != nil {
					logger.Error("invalidator error", "err", err)
				}
			}()
		}

		chunksServer := server.NewChunksServer(store, svc, m, logger)
		api := chunksServer.NewHTTPHandler(cfg.AuthToken)

		mux := http.NewServeMux()
		mux.Handle("/v1/", api)
		mux.Handle("/metrics", api)
		if cfg.TemplateDir != "" {
			pages, err := server.NewPageHandler(svc, os.DirFS(cfg.TemplateDir), logger)
			if err != nil {
				if invCancel != nil {
					invCancel()
				}
				publisher.Close()
				mem.Stop()
				store.Close()
				return err
			}
			mux.Handle("/", server.RequestMiddleware(server.PageOptions{
				Wrap:    cfg.Wrap,
				Metrics: m,
				Logger:  logger,
			}, server.EditorIdentify(cfg.EditorToken), pages))
			logger.Info("page rendering enabled", "dir", cfg.TemplateDir, "wrap", cfg.Wrap)
		}

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: server.RecoveryMiddleware(logger, server.LoggingMiddleware(logger, mux)),
		}

		serveErr := startHTTP(httpServer, logger)

		// Start sync scheduler if any destinations are configured.
		var scheduler *chunksync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []chunksync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := chunksync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				dests = append(dests, chunksync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = chunksync.NewScheduler(store, dests, cfg.SyncInterval, m, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("chunks server started",
			"http_addr", cfg.HTTPAddr,
			"instance", cfg.InstanceID,
		)

		// Wait for SIGINT or SIGTERM, or for the listener to fail.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		runErr := awaitStop(logger, sigCh, serveErr)

		// Graceful shutdown.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if invCancel != nil {
			invCancel()
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		mem.Stop()
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return runErr
	},
}

// startHTTP serves srv in the background. The returned channel receives
// the error if the server stops for any reason other than Shutdown.
func startHTTP(srv *http.Server, logger *slog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// awaitStop blocks until a signal arrives or serving fails, and returns
// the serving error, if any.
func awaitStop(logger *slog.Logger, sigCh <-chan os.Signal, serveErr <-chan error) error {
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		return nil
	case err := <-serveErr:
		logger.Info("HTTP server failed, shutting down")
		return err
	}
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write every chunk as JSONL, reading the database directly",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(cmd); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		out := os.Stdout
		if path, _ := cmd.Flags().GetString("output"); path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			defer f.Close()
			out = f
		}
		return chunksync.ExportJSONL(cmd.Context(), store, out)
	},
}

func init() {
	serveCmd.Flags().String("env-file", ".env", "file of KEY=VALUE settings loaded before the environment is read")
	exportCmd.Flags().String("env-file", ".env", "file of KEY=VALUE settings loaded before the environment is read")
	exportCmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")
}
