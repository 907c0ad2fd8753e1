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

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/yanivhq/yaniv-server/internal/randutil"
	"github.com/yanivhq/yaniv-server/internal/roomid"
	"github.com/yanivhq/yaniv-server/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"yaniv-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `short:"s" long:"seed" help:"Seed for deterministic shuffles (overrides config, 0 means random)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Server.Seed = CLI.Seed
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	// Setup logging
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

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.Info("Starting Yaniv Server",
		"addr", cfg.GetServerAddress(),
		"slapDown", *cfg.Rules.SlapDown,
		"timePerPlayer", cfg.Rules.TimePerPlayer,
		"maxMatchPoints", cfg.Rules.MaxMatchPoints)

	// Create WebSocket server
	wsServer := server.NewServer(cfg.GetServerAddress(), logger)

	// Create room manager and game service. Room codes and shuffles use
	// independent streams derived from the same seed.
	clock := quartz.NewReal()
	rooms := server.NewRoomManager(logger, clock, roomid.NewGenerator(randutil.New(seed)), cfg.GameConfig())
	gameService := server.NewGameService(wsServer, rooms, logger, clock, randutil.New(seed+1))

	wsServer.SetGameService(gameService)

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	eg, egCtx := errgroup.WithContext(context.Background())
	eg.Go(func() error {
		if err := wsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		select {
		case <-sig:
			logger.Info("Shutting down server...")
			return wsServer.Stop()
		case <-egCtx.Done():
			return nil
		}
	})

	if err := eg.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
