package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaki95/ambient-mixer/config"
	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/job"
	"github.com/jaki95/ambient-mixer/internal/server"
	"github.com/jaki95/ambient-mixer/internal/service"
	"github.com/jaki95/ambient-mixer/internal/storage"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the configuration file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			slog.Warn("Failed to clean temporary files", "error", err)
		}
	}()

	engineCfg := engine.Config{
		SampleRate:     cfg.Audio.SampleRate,
		BufferDuration: time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		Sink:           cfg.Audio.Backend,
		WorkDir:        cfg.Audio.AssetDir,
		FFmpegPath:     cfg.Audio.FFmpegPath,
		Sounds:         cfg.Audio.Sounds,
	}
	eng := engine.New(engineCfg)
	defer eng.Close()

	port := audio.NewPort(eng,
		audio.WithScheduler(audio.NewTimerScheduler(time.Duration(cfg.Audio.FrameIntervalMs)*time.Millisecond)),
	)
	if err := port.Initialize(ctx); err != nil {
		return err
	}

	syncer := service.NewSyncMix(port,
		service.WithMaxConcurrency(cfg.Audio.MaxConcurrency),
		service.WithReportHandler(logReport),
	)
	controller := service.NewMixController(syncer, port, storage.NewMixRepository(store))
	port.Events().AddListener(controller.HandleEvent)

	srv := server.New(cfg, server.Deps{
		Mixes:    controller,
		Playback: port,
		Syncer:   syncer,
		Renderer: service.NewRenderer(engineCfg, store),
		Jobs:     job.NewManager(),
	})

	cleanupStop := make(chan struct{})
	defer close(cleanupStop)
	srv.StartCleanupWorker(cleanupStop)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting ambient mixer API server", "port", cfg.Server.Port, "sounds", len(cfg.Audio.Sounds))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := port.StopAll(shutdownCtx); err != nil {
		slog.Warn("Failed to stop sounds", "error", err)
	}
	return nil
}

func logReport(r service.SyncReport) {
	failed := r.Failed()
	slog.Debug("Sync pass finished",
		"mixId", r.MixID,
		"operations", len(r.Results),
		"failed", len(failed),
		"took", r.Finished.Sub(r.Started),
	)
}
