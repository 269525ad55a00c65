package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/api"
	"github.com/user/elemelon/internal/game"
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags
var version = "dev"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config/config.json", "Path to configuration file (.json or .yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}

func openSaveStore(cfg config.DatabaseConfig) (interfaces.SaveStore, error) {
	switch cfg.Driver {
	case "sqlite3":
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, err
		}
		return game.NewSQLStore(cfg.DSN)
	default:
		return game.NewFileStore(cfg.DSN)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics are exported through the default Prometheus registry
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())
	metrics := observe.DefaultMetrics()

	store, err := openSaveStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open save store: %w", err)
	}
	defer store.Close()

	// Initialize game manager
	gameManager := game.NewGameManager(cfg)
	gameManager.SetLogger(logger)
	gameManager.SetSaveStore(store)
	gameManager.SetScene(game.NewLogScene(logger))
	gameManager.SetMetrics(metrics)

	if err := gameManager.Start(cfg.World.Seed); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}
	if loaded, err := gameManager.LoadGame("auto"); err != nil {
		logger.Warn("Failed to restore autosave", zap.Error(err))
	} else if loaded {
		logger.Info("Autosave restored", zap.Int64("seed", gameManager.WorldSeed()))
	}

	server := api.NewServer(gameManager, cfg, logger, metrics).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return game.NewTickLoop(gameManager, cfg.Server.TickRate).Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if _, saveErr := gameManager.SaveGame(types.SaveAuto); saveErr != nil {
		logger.Error("Final autosave failed", zap.Error(saveErr))
	}
	return err
}
