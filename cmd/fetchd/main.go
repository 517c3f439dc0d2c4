package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/fetchd/internal/cleanup"
	"github.com/italolelis/fetchd/internal/config"
	"github.com/italolelis/fetchd/internal/download"
	"github.com/italolelis/fetchd/internal/http/rest"
	"github.com/italolelis/fetchd/internal/logctx"
	"github.com/italolelis/fetchd/internal/notifier"
	"github.com/italolelis/fetchd/internal/permission"
	"github.com/italolelis/fetchd/internal/presenter"
	"github.com/italolelis/fetchd/internal/storage"
	"github.com/italolelis/fetchd/internal/storage/sqlite"
	"github.com/italolelis/fetchd/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// version is set at build time.
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("fetchd starting...", "version", version, "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	var runs storage.RunRepository

	if cfg.DBPath != "" {
		database, err := sqlite.InitDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close()

		runs = sqlite.NewInstrumentedRunRepository(database, tel)
	}

	// =========================================================================
	// Start Download Engine
	dir, err := download.DownloadsDir(cfg.DownloadsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve downloads directory: %w", err)
	}

	pres := presenter.New(presenter.Options{
		Foreground: cfg.Foreground,
		Output:     os.Stderr,
		Alerter:    buildAlerter(cfg),
	})

	handlers := []download.EventHandler{pres}
	if runs != nil {
		handlers = append(handlers, storage.NewJournal(runs))
	}

	engine, err := download.NewEngine(download.Options{
		Dir:        dir,
		ChunkSize:  cfg.ChunkSize,
		Source:     download.NewHTTPSource(buildSourceClient(cfg)),
		Permission: buildPermissionChecker(cfg),
		Handlers:   handlers,
		Telemetry:  tel,
	})
	if err != nil {
		return fmt.Errorf("failed to build download engine: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// =========================================================================
	// Start API Service
	server := setupServer(ctx, engine, pres, runs, tel, cfg)

	g.Go(func() error {
		return engine.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("Initializing API support", "host", cfg.Web.BindAddress)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	})

	// =========================================================================
	// Start Cleanup
	if runs != nil && cfg.KeepDownloadedFor > 0 {
		g.Go(func() error {
			runCleanup(ctx, runs, cfg)

			return nil
		})
	}

	logger.Info("waiting for downloads...",
		"downloads_dir", dir,
		"foreground", cfg.Foreground,
		"retention", cfg.KeepDownloadedFor.String(),
	)

	return g.Wait()
}

func buildAlerter(cfg *config.Config) notifier.Notifier {
	if cfg.DiscordWebhookURL != "" {
		return &notifier.DiscordNotifier{
			WebhookURL: cfg.DiscordWebhookURL,
			Client:     &http.Client{Timeout: 10 * time.Second},
		}
	}

	return &notifier.LogNotifier{}
}

// buildSourceClient returns the client used for the source stream. It has no
// timeout so a slow source keeps the run open for as long as it stays connected.
func buildSourceClient(cfg *config.Config) *http.Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)

	if cfg.SourceToken == "" {
		return &http.Client{Transport: transport}
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.SourceToken}),
			Base:   transport,
		},
	}
}

func buildPermissionChecker(cfg *config.Config) permission.Checker {
	switch strings.ToLower(cfg.PermissionOverride) {
	case config.PermissionGranted:
		return permission.Static{Granted: true}
	case config.PermissionDenied:
		return permission.Static{Granted: false}
	default:
		return permission.DirChecker{}
	}
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(
	ctx context.Context,
	engine *download.Engine,
	pres *presenter.Presenter,
	runs storage.RunRepository,
	tel *telemetry.Telemetry,
	cfg *config.Config,
) *http.Server {
	dHandler := rest.NewDownloadsHandler(engine, pres, runs)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)

	r.Handle("/metrics", tel.Handler())
	r.Mount("/", dHandler.Routes())

	return &http.Server{
		Addr:        cfg.Web.BindAddress,
		ReadTimeout: cfg.Web.ReadTimeout,
		IdleTimeout: cfg.Web.IdleTimeout,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func runCleanup(ctx context.Context, runs storage.RunRepository, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	cleanupTicker := time.NewTicker(cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup goroutine shutting down.")

			return
		case <-cleanupTicker.C:
			tracked, err := runs.GetRuns(ctx)
			if err != nil {
				logger.Error("failed to get tracked runs for cleanup", "err", err)

				continue
			}

			if _, err := cleanup.DeleteExpiredFiles(ctx, tracked, cfg.KeepDownloadedFor); err != nil {
				logger.Error("failed to delete expired tracked files", "err", err)
			}
		}
	}
}
