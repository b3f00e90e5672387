package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/internal/config"
	"github.com/politicalpower/power-server-go/internal/game"
	"github.com/politicalpower/power-server-go/internal/repository"
	"github.com/politicalpower/power-server-go/internal/server"
	"github.com/politicalpower/power-server-go/internal/session"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting power server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Card catalog: file by default, Postgres when configured.
	catalog, db, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	}
	logger.Info("card catalog loaded",
		zap.String("source", cfg.Cards.Source),
		zap.Int("cards", catalog.Len()),
	)

	// Session store: Redis when configured, in-memory otherwise.
	sessions, err := buildSessionStore(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}

	engine := game.NewEngine(catalog, game.Settings{
		MaxPlayers:       cfg.Game.MaxPlayers,
		MaxRounds:        cfg.Game.MaxRounds,
		MandateThreshold: cfg.Game.MandateThreshold,
		InitialHandSize:  cfg.Game.InitialHandSize,
	}, logger, game.Options{})
	logger.Info("game engine initialized")

	relay := server.NewServer(engine, sessions, cfg.Server.AllowedOrigins, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      relay.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	cancel()

	logger.Info("power server stopped")
}

// loadCatalog builds the catalog from the configured source. The returned
// DB is non-nil only for the postgres source.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*card.Catalog, *repository.DB, error) {
	if cfg.Cards.Source == "postgres" {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		catalog, err := repository.NewCardRepository(db).LoadCatalog(ctx)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return catalog, db, nil
	}
	catalog, err := card.LoadFile(cfg.Cards.Path)
	if err != nil {
		return nil, nil, err
	}
	return catalog, nil, nil
}

func buildSessionStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (session.Store, error) {
	if !cfg.Enabled {
		logger.Info("session store: in-memory (sessions will not survive restart)")
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store, err := session.NewRedisStore(ctx, client, cfg.SessionTTL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("session store: redis",
		zap.String("address", cfg.Address),
		zap.Duration("ttl", cfg.SessionTTL),
	)
	return store, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
