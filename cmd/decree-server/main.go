package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/thedecree/internal/server"
)

var cli struct {
	Config   string `help:"Path to HCL config file." type:"existingfile" optional:""`
	Port     int    `help:"Listen port (overrides config)." optional:""`
	LogLevel string `help:"Log level (debug, info, warn, error)." optional:""`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("decree-server"),
		kong.Description("Authoritative WebSocket server for TheDecree card game."),
	)

	cfg, err := server.LoadConfig(cli.Config)
	if err != nil {
		kctx.FatalIfErrorf(err)
	}
	if cli.Port != 0 {
		cfg.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(cfg, logger, nil)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server exited", "error", err)
	}
	logger.Info("shutdown complete")
}
