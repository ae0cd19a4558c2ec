package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terraplay/geoquiz/internal/config"
	"github.com/terraplay/geoquiz/internal/database"
	"github.com/terraplay/geoquiz/internal/dataset"
	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/enrich"
	"github.com/terraplay/geoquiz/internal/geoquiz"
	"github.com/terraplay/geoquiz/internal/migrations"
	"github.com/terraplay/geoquiz/internal/server"
	"github.com/terraplay/geoquiz/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	if err := os.MkdirAll(cfg.DBDir, 0o755); err != nil {
		return fmt.Errorf("creating db dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DBDir, "geoquiz.db")
	db, err := database.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", dbPath)

	st := store.New(db)

	// --- Dataset ---
	countries, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	logger.Info("dataset loaded", "countries", len(countries), "path", cfg.DatasetPath)

	used, err := st.UsedCities(ctx)
	if err != nil {
		return fmt.Errorf("loading used cities: %w", err)
	}

	difficulty := geoquiz.DifficultyTier(cfg.Difficulty)
	if stored, err := st.Setting(ctx, store.SettingDifficulty, cfg.Difficulty); err == nil {
		difficulty = geoquiz.DifficultyTier(stored)
	}

	// --- Enrichment ---
	// The settings store takes precedence over the environment, so a key
	// saved through the UI works without a restart.
	enricher := enrich.New(logger, enrich.Config{
		BaseURL: cfg.OracleURL,
		Model:   cfg.OracleModel,
		APIKey:  cfg.OracleAPIKey,
		Timeout: cfg.OracleTimeout,
	}, func(ctx context.Context) string {
		key, err := st.Setting(ctx, store.SettingAPIKey, "")
		if err != nil {
			logger.Error("loading api key", "error", err)
			return ""
		}
		return key
	})

	// --- Engine ---
	broker := server.NewBroker()
	seq := engine.NewSequencer(engine.Config{
		Logger:     logger,
		Selector:   engine.NewSelector(countries, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Enricher:   enricher,
		Presenter:  server.NewBrokerPresenter(broker),
		Store:      st,
		Used:       used,
		Difficulty: difficulty,
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano() + 1)),
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, seq, st, broker, db, cfg.SPADir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
