package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"roomchat/internal/config"
	"roomchat/internal/logger"
	"roomchat/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Service:   cfg.Logging.Service,
		Version:   firstNonEmpty(cfg.Logging.Version, version),
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Backend:   logger.ParseBackend(cfg.Logging.Backend),
		Debug:     cfg.Logging.Debug,
		AddSource: cfg.Logging.AddSource,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(cfg)
	if err != nil {
		slog.Error("build app", "err", err)
		os.Exit(1)
	}
	app.Start(ctx)

	srv := server.New(server.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, app.Handler)

	slog.Info("roomchat starting",
		"addr", cfg.HTTP.Addr,
		"upload_folder", cfg.Upload.Folder,
		"code_length", cfg.Rooms.CodeLength,
	)
	if err := srv.Run(ctx); err != nil {
		slog.Error("http server", "err", err)
		os.Exit(1)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
