package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"fleet-report-builder/internal/api"
	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/backend"
	"fleet-report-builder/internal/db"
	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/mw"
	"fleet-report-builder/internal/notification"
	"fleet-report-builder/internal/render"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/store"
	"fleet-report-builder/internal/wizard"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the report wizard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			webpushOptions := webpush.Options{
				VAPIDPublicKey:  cfg.Push.PublicKey,
				VAPIDPrivateKey: cfg.Push.PrivateKey,
				Subscriber:      cfg.Push.Subject,
				TTL:             cfg.Push.TTL,
			}
			if cfg.Push.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
				return errors.New("VAPID keys must be configured when push is enabled")
			}

			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			appStore := store.NewGormStore(gormDB)
			log.Info().Msg("database initialized successfully")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client := newClient(cfg, log)
			directory := backend.NewCachedDirectory(client, cfg.Reports.DirectoryCache)
			catalog := report.NewCatalog()
			registry := artifact.NewRegistry(cfg.Reports.ArtifactTTL)
			dispatcher := dispatch.New(catalog, client, registry, render.NewRenderer(), log).
				WithRecorder(appStore).
				WithDirectory(directory)

			if cfg.Push.Enabled {
				pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions, log)
				pool.Start(ctx)
				dispatcher = dispatcher.WithListener(pool)
				log.Info().Int("workers", cfg.WorkerPool.Size).Msg("push notifications enabled")
			}

			deps := wizard.Deps{
				Catalog:    catalog,
				Directory:  directory,
				Reports:    client,
				Downloader: client,
				Dispatcher: dispatcher,
				Artifacts:  registry,
				Defaults: wizard.Defaults{
					Timezone:          cfg.Reports.DefaultTimezone,
					Format:            cfg.Reports.DefaultFormat,
					DaysWithoutSignal: cfg.Reports.DefaultDaysWithoutSignal,
				},
				Highlight: cfg.Reports.Highlight,
				Log:       log,
			}

			limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute)
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if n := limiter.Cleanup(); n > 0 {
							log.Debug().Int("removed", n).Msg("rate limiter cleanup")
						}
					case <-ctx.Done():
						return
					}
				}
			}()

			handler := api.NewHandler(appStore, &webpushOptions, deps, api.NewSessions(cfg.Reports.SessionTTL))
			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: api.NewRouter(handler, cfg.Server, limiter, log),
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info().Int("port", cfg.Server.Port).Str("backend", cfg.Backend.BaseURL).Msg("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-stop:
				log.Info().Msg("shutdown signal received, stopping services")
			case err := <-serveErr:
				return fmt.Errorf("HTTP server ListenAndServe: %w", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server Shutdown: %w", err)
			}

			log.Info().Msg("server gracefully stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the configured server port")
	return cmd
}
