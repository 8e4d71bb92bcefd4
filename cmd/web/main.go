package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/ludoarena/match-engine/internal/config"
	"github.com/ludoarena/match-engine/internal/db"
	"github.com/ludoarena/match-engine/internal/evidence"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/middleware"
	"github.com/ludoarena/match-engine/internal/notify"
	"github.com/ludoarena/match-engine/internal/service"
	"github.com/ludoarena/match-engine/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()
	setupLogger(cfg)

	database := db.InitDB(cfg.DatabasePath)
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth()

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, closeNotifier := newNotifier(ctx, cfg)
	defer closeNotifier()

	evidenceStore, err := newEvidenceStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up evidence storage:", err)
	}

	l := ledger.New(database)
	deps := service.Deps{
		DB:             database,
		Matches:        store.NewMatchStore(database),
		Results:        store.NewResultStore(database),
		Settings:       store.NewSettingsStore(database),
		Ledger:         l,
		Notifier:       notifier,
		JoinWindow:     cfg.JoinWindow,
		RoomCodeWindow: cfg.RoomCodeWindow,
	}
	settlement := service.NewSettlementExecutor(deps.Matches, l)

	expiry := service.NewExpiryScheduler(deps, settlement, service.SweepOptions{
		Interval:    cfg.SweepInterval,
		Batch:       cfg.SweepBatch,
		Concurrency: cfg.SweepConcurrency,
	})
	if err := expiry.Start(ctx); err != nil {
		log.Fatal("Failed to start expiry scheduler:", err)
	}

	app := &application{
		cfg:            cfg,
		sessionManager: sessionManager,
		userStore:      store.NewUserStore(database),
		users:          service.NewUserService(database, store.NewUserStore(database), l, cfg.IsAdminEmail),
		matches:        service.NewMatchService(deps, settlement),
		joins:          service.NewJoinArbiter(deps),
		claims:         service.NewResultClaimCollector(deps),
		resolver:       service.NewAdjudicationResolver(deps, settlement),
		admin:          service.NewAdminService(deps),
		evidence:       evidenceStore,
		ping:           database.PingContext,
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if err := expiry.Stop(); err != nil {
		slog.Error("failed to stop expiry scheduler", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newNotifier always logs events and also publishes them to Redis when
// REDIS_URL is set.
func newNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func()) {
	logNotifier := notify.NewLogNotifier(slog.Default())
	if cfg.RedisURL == "" {
		return logNotifier, func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid REDIS_URL:", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, events will be retried per publish", "error", err)
	}
	slog.Info("publishing match events to redis", "channel", cfg.EventsChannel)

	return notify.Multi{logNotifier, notify.NewRedisNotifier(client, cfg.EventsChannel)}, func() {
		client.Close()
	}
}

func newEvidenceStore(ctx context.Context, cfg *config.Config) (evidence.Store, error) {
	switch cfg.EvidenceBackend {
	case "r2":
		return evidence.NewR2Store(ctx, cfg.R2)
	default:
		return evidence.NewLocalStore(cfg.EvidenceDir, "/uploads")
	}
}
