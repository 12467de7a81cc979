package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clickchess/internal/config"
	"clickchess/internal/game"
	"clickchess/internal/handlers"
	"clickchess/internal/livestore"
	"clickchess/internal/logging"
	"clickchess/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CLICKCHESS_CONFIG"), "path to YAML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Debug = *debug || cfg.Debug
	if err := logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return err
	}
	defer func() { _ = logging.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubCfg := game.HubConfig{
		Defaults: game.Options{
			WhiteName:  cfg.Session.WhiteName,
			BlackName:  cfg.Session.BlackName,
			Seconds:    cfg.Clock.Seconds,
			Tick:       cfg.Clock.Tick,
			KingSafety: cfg.Rules.KingSafety,
			StartClock: cfg.Clock.AutoStart,
		},
		IdleTTL:  cfg.Session.IdleTTL,
		EndedTTL: cfg.Session.EndedTTL,
	}

	var store *storage.Store
	if cfg.DatabaseURL != "" {
		db, err := storage.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		store = storage.NewStore(db)
		hubCfg.Archive = store
		logging.L().Info("storage_ready")
	}

	if cfg.RedisURL != "" {
		live, err := livestore.Open(ctx, cfg.RedisURL, cfg.Session.IdleTTL)
		if err != nil {
			return fmt.Errorf("open redis: %w", err)
		}
		defer live.Close()
		dropStale(ctx, live, store)
		hubCfg.Cache = live
		logging.L().Info("livestore_ready")
	}

	hub := game.NewHub(hubCfg)
	defer hub.Close()

	version := versionString()
	h := handlers.NewHandler(hub, store, version)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.L().Info("http_listen", zap.String("addr", cfg.Addr), zap.String("version", version))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logging.L().Info("shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.L().Warn("http_shutdown_failed", zap.Error(err))
		}
	}
	return nil
}

// dropStale clears snapshots left in redis by a previous process and marks
// the unfinished ones abandoned in the archive.
func dropStale(ctx context.Context, live *livestore.Store, store *storage.Store) {
	ids, err := live.IDs(ctx)
	if err != nil {
		logging.L().Warn("livestore_scan_failed", zap.Error(err))
		return
	}
	now := time.Now()
	for _, id := range ids {
		if st, err := live.Load(ctx, id); err == nil && st != nil && st.Ongoing {
			if err := store.AbandonGame(ctx, id, now); err != nil {
				logging.L().Warn("archive_abandon_failed", zap.String("session_id", id), zap.Error(err))
			}
		}
		if err := live.Delete(ctx, id); err != nil {
			logging.L().Warn("livestore_delete_failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	if len(ids) > 0 {
		logging.L().Info("livestore_stale_dropped", zap.Int("count", len(ids)))
	}
}
