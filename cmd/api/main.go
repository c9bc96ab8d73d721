package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fsblobstore "github.com/umbral-esperanza/choir-console-api/internal/adapters/fs/blobstore"
	fssyncsignal "github.com/umbral-esperanza/choir-console-api/internal/adapters/fs/syncsignal"
	"github.com/umbral-esperanza/choir-console-api/internal/adapters/httpapi"
	memblobstore "github.com/umbral-esperanza/choir-console-api/internal/adapters/memory/blobstore"
	memidempotency "github.com/umbral-esperanza/choir-console-api/internal/adapters/memory/idempotency"
	postgres "github.com/umbral-esperanza/choir-console-api/internal/adapters/postgres"
	pgchoirmirror "github.com/umbral-esperanza/choir-console-api/internal/adapters/postgres/choirmirror"
	sqliteblobstore "github.com/umbral-esperanza/choir-console-api/internal/adapters/sqlite/blobstore"
	"github.com/umbral-esperanza/choir-console-api/internal/app/session"
	"github.com/umbral-esperanza/choir-console-api/internal/app/state"
	platformclock "github.com/umbral-esperanza/choir-console-api/internal/platform/clock"
	"github.com/umbral-esperanza/choir-console-api/internal/platform/config"
	blobstoreport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/blobstore"
	choirmirrorport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/choirmirror"
	syncsignalport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/syncsignal"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	clk := platformclock.NewSystemClock()

	var (
		blobs   blobstoreport.Store
		syncSig *fssyncsignal.Signal
		cleanup func()
	)
	switch cfg.StorageBackend {
	case "fs":
		store, err := fsblobstore.NewStore(cfg.DataDir)
		if err != nil {
			logger.Error("open fs store", "dir", cfg.DataDir, "error", err)
			os.Exit(1)
		}
		blobs = store
		syncSig = fssyncsignal.New(cfg.DataDir, cfg.SyncDebounce, logger)
	case "sqlite":
		store, err := sqliteblobstore.Open(cfg.SQLitePath)
		if err != nil {
			logger.Error("open sqlite store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		blobs = store
		cleanup = func() { _ = store.Close() }
		// Sibling processes share the data dir marker even on sqlite.
		syncSig = fssyncsignal.New(cfg.DataDir, cfg.SyncDebounce, logger)
	default:
		blobs = memblobstore.NewStore()
	}
	if cleanup != nil {
		defer cleanup()
	}

	var mirror choirmirrorport.Mirror = choirmirrorport.Nop{}
	if cfg.MirrorDatabaseURL != "" {
		pool, err := postgres.NewPool(context.Background(), cfg.MirrorDatabaseURL, postgres.PoolOptions{})
		if err != nil {
			logger.Error("invalid mirror config", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		mirror = pgchoirmirror.NewMirror(pool)
		logger.Info("choir mirror enabled")
	}

	season, _ := cfg.Season()
	policy, _ := cfg.RecordablePolicy()

	var announcer syncsignalport.Announcer = syncsignalport.NopAnnouncer{}
	if syncSig != nil {
		announcer = syncSig
	}

	st := state.NewStore(state.Options{
		Blobs:       blobs,
		Announcer:   announcer,
		Mirror:      mirror,
		Clock:       clk,
		Logger:      logger,
		Recordable:  policy,
		SeasonStart: season[0],
		SeasonEnd:   season[1],
	})
	if err := st.Load(context.Background()); err != nil {
		logger.Error("load state", "error", err)
		os.Exit(1)
	}

	gate := session.NewGate(cfg.AdminToken, cfg.DirectorSuffix)
	idem := memidempotency.NewStore()

	api := httpapi.NewServer(st, gate, idem, clk)
	handler := httpapi.NewRouter(api, gate, st)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reload on foreign announcements from sibling instances.
	if syncSig != nil {
		go func() {
			err := syncSig.Watch(ctx, func() {
				if err := st.Reload(context.Background()); err != nil {
					logger.Warn("reload after sync signal failed", "error", err)
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("sync watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("api listening", "port", cfg.Port, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

