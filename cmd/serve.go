package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/internal/config"
	"github.com/nextlevelbuilder/meetwatch/internal/diarize"
	"github.com/nextlevelbuilder/meetwatch/internal/httpapi"
	"github.com/nextlevelbuilder/meetwatch/internal/logbuf"
	"github.com/nextlevelbuilder/meetwatch/internal/profiles"
	"github.com/nextlevelbuilder/meetwatch/internal/session"
	"github.com/nextlevelbuilder/meetwatch/internal/storage"
	"github.com/nextlevelbuilder/meetwatch/internal/telemetry"
	"github.com/nextlevelbuilder/meetwatch/internal/vault"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting bot server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	logs := setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "hash", cfg.Hash())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without traces", "error", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	broker := bus.NewBroker()

	local, err := storage.NewLocal(cfg.DataDirPath())
	if err != nil {
		slog.Error("failed to prepare data directory", "error", err)
		os.Exit(1)
	}
	remote := storage.NewRemoteSink(cfg.Storage.RemoteEventURL, cfg.Storage.RemoteBlobURL)
	store := storage.NewHybrid(local, remote)

	index, err := storage.OpenIndex(cfg.DataDirPath())
	if err != nil {
		slog.Warn("chunk index unavailable", "error", err)
	} else {
		defer index.Close()
		go index.Run(ctx, broker)
	}
	if remote.Enabled() {
		go remote.Run(ctx, broker)
	}

	retention := storage.NewRetention(cfg.DataDirPath(), cfg.Storage.RetentionCron, cfg.Storage.RetentionDays)
	go retention.Run(ctx)

	registry, err := profiles.NewRegistry(cfg.ProfilesRootPath(), cfg.Profiles.DefaultName)
	if err != nil {
		slog.Error("failed to prepare profiles root", "error", err)
		os.Exit(1)
	}
	if err := registry.Watch(ctx); err != nil {
		slog.Warn("profile watcher unavailable", "error", err)
	}

	cookies, err := vault.New(cfg.DataDirPath(), cfg.Vault.Secret)
	if err != nil {
		slog.Warn("cookie vault unavailable", "error", err)
	}

	pool := browser.NewPool(cfg.Browser, cfg.ProfilesRootPath())
	defer pool.Close()

	diarizer := diarize.New(
		cfg.Diarization.EndpointURL,
		time.Duration(cfg.Diarization.TimeoutSeconds)*time.Second,
		nil,
	)

	manager := session.NewManager()
	scheduler := session.NewScheduler(session.Services{
		Config:   cfg,
		Bus:      broker,
		Store:    store,
		Index:    index,
		Profiles: registry,
		Pool:     pool,
		Diarizer: diarizer,
	}, manager)
	go scheduler.Run(ctx)

	server := httpapi.NewServer(cfg, scheduler, manager, broker, logs, cookies, registry)
	go server.FanOut(ctx.Done())

	if err := server.Start(ctx); err != nil {
		slog.Error("server exited", "error", err)
	}

	// The listener is down; give live sessions their grace window.
	grace := time.Duration(cfg.Sessions.ShutdownGraceSecs) * time.Second
	if grace <= 0 {
		grace = 30 * time.Second
	}
	slog.Info("shutting down, draining sessions", "grace", grace)
	scheduler.Drain(grace)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	shutdownTelemetry(flushCtx)
	slog.Info("shutdown complete")
}

// setupLogging installs the default slog handler teed into the ring
// buffer that backs the /logs endpoint.
func setupLogging() *logbuf.Buffer {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	buf := logbuf.NewBuffer()
	inner := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(logbuf.NewHandler(inner, buf)))
	return buf
}
