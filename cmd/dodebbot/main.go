package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/retinskiymp/dodebbot/internal/blackjack"
	"github.com/retinskiymp/dodebbot/internal/config"
	"github.com/retinskiymp/dodebbot/internal/ledger"
	"github.com/retinskiymp/dodebbot/internal/notify"
	"github.com/retinskiymp/dodebbot/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"dodebbot.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DB       string `long:"db" help:"Path to the ledger database (overrides config)"`
	Seed     int64  `long:"seed" help:"Deck RNG seed (0 = time-based)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		cfg.Server.Addr = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DB != "" {
		cfg.Server.DBPath = CLI.DB
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	store, err := ledger.OpenSQLite(cfg.Server.DBPath, cfg.Server.StartBalance)
	if err != nil {
		logger.Error("Failed to open ledger", "path", cfg.Server.DBPath, "error", err)
		kctx.Exit(1)
	}
	defer store.Close()

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	hub := notify.NewHub(logger, cfg.Blackjack.NotifyRate, cfg.Blackjack.NotifyBurst)
	registry := blackjack.NewRegistry(blackjack.Deps{
		Store:   store,
		Channel: hub,
		Logger:  logger,
		Rules:   cfg.Rules(),
		Seed:    seed,
	})
	gateway := server.NewGateway(registry, logger)
	srv := server.NewServer(cfg.Server.Addr, hub, gateway, logger)

	logger.Info("Starting dodebbot",
		"addr", cfg.Server.Addr,
		"db", cfg.Server.DBPath,
		"bet_window", cfg.Blackjack.BetWindowSec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
		kctx.Exit(1)
	}
	logger.Info("Shutdown complete")
}
