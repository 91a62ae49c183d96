package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/build"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/config"
	"github.com/joestump/memedex/internal/handler"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/metrics"
	"github.com/joestump/memedex/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			logger := newLogger(cfg.LogLevel)
			logger.Info("configuration loaded",
				slog.String("version", build.String()),
				slog.String("http_address", cfg.HTTP.Addr),
				slog.String("db_driver", cfg.DB.Driver),
				slog.String("media_backend", cfg.Media.Backend),
				slog.String("log_level", cfg.LogLevel.String()))

			ctx := cmd.Context()
			cat, err := catalog.Open(ctx, store.NewCatalogStore(database), catalog.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			stats := cat.Stats()
			metrics.SetSize(stats.Items, stats.Tags)
			logger.Info("catalog loaded", slog.Int("items", stats.Items), slog.Int("tags", stats.Tags))

			files, err := newMediaStore(ctx, cfg.Media)
			if err != nil {
				return err
			}

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime, !cfg.InsecureCookies)
			userStore := store.NewUserStore(database)
			tokenStore := auth.NewSQLTokenStore(database)

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthMiddleware: auth.NewMiddleware(sessionManager, tokenStore, userStore, logger),
				Catalog:        cat,
				Media:          media.NewLibrary(files, "/api/meme/dir/"),
				UserStore:      userStore,
				TokenStore:     tokenStore,
				Ping:           database.PingContext,
				Logger:         logger,
			})

			httpServer := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gCtx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("starting HTTP server", slog.String("address", cfg.HTTP.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("HTTP server error: %w", err)
				}
				return nil
			})

			g.Go(func() error {
				<-gCtx.Done()
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

// newMediaStore opens the configured image backend.
func newMediaStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Backend {
	case config.MediaBackendMinio:
		m := cfg.Minio
		client, err := media.NewMinioClient(ctx, media.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return media.NewMinioStore(client, m.Bucket, m.Prefix), nil
	default:
		return media.NewFS(cfg.Path)
	}
}
