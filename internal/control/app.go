// Package control assembles the application from its parts and manages
// their lifecycle.
package control

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/hongbaolabs/hongbao/internal/bot"
	"github.com/hongbaolabs/hongbao/internal/core/config"
	"github.com/hongbaolabs/hongbao/internal/core/session"
	"github.com/hongbaolabs/hongbao/internal/crypto/starkcurve"
	"github.com/hongbaolabs/hongbao/internal/health"
	"github.com/hongbaolabs/hongbao/internal/infra/ledger"
	redisclient "github.com/hongbaolabs/hongbao/internal/infra/redis"
	"github.com/hongbaolabs/hongbao/internal/infra/storage"
	"github.com/hongbaolabs/hongbao/internal/infra/storage/file"
	"github.com/hongbaolabs/hongbao/internal/infra/storage/postgres"
	"github.com/hongbaolabs/hongbao/internal/orchestrator"
	"github.com/hongbaolabs/hongbao/internal/wallet"
)

// App is the assembled bot with all dependencies initialized.
type App struct {
	cfg          *config.AppConfig
	telegram     *bot.Telegram
	reaper       *session.Reaper
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp wires the application from configuration.
func NewApp(cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log, done: make(chan struct{})}

	// 1. Secret storage: Postgres when configured, filesystem otherwise.
	var repo storage.SecretRepository
	var healthCheck health.Checker
	if cfg.Storage.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		app.db = db
		repo = postgres.NewSecretRepo(db)
		healthCheck = db.Health
		log.Info("using PostgreSQL secret storage")
	} else {
		fileRepo, err := file.NewRepo(cfg.Storage.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to init file storage: %w", err)
		}
		repo = fileRepo
		log.Info("using filesystem secret storage", "root", cfg.Storage.Root)
	}

	// 2. Key management.
	masterKey, err := hex.DecodeString(cfg.Wallet.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	store := wallet.NewStore(repo, masterKey)

	classHash, err := starkcurve.ParseFelt(cfg.Ledger.Contracts.AccountClassHash)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account class hash: %w", err)
	}
	generator := wallet.NewGenerator(classHash)

	// 3. Ledger gateway.
	gateway, err := ledger.NewClient(cfg.Ledger, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger client: %w", err)
	}

	// 4. Submit guard: Redis when configured, per-process otherwise.
	var locker orchestrator.Locker
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisClient = client
		locker = &redisclient.SubmitLocker{Client: client}
		log.Info("using Redis submit guard")
	} else {
		locker = orchestrator.NewMemoryLocker()
	}

	// 5. Orchestrator.
	orchCfg, err := orchestrator.BuildConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator config: %w", err)
	}
	orch := orchestrator.New(gateway, store, locker, orchCfg, log)

	// 6. Conversation state.
	sessions := session.NewManager()
	app.reaper = session.NewReaper(sessions, cfg.Session.TTL, log)

	// 7. Bot surface.
	handlers := bot.NewHandlers(generator, store, orch, sessions, cfg.Wallet.AllowRecreate, log)
	telegram, err := bot.NewTelegram(cfg.Telegram.Token, handlers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram: %w", err)
	}
	app.telegram = telegram

	// 8. Operational server.
	app.healthServer = health.NewServer(cfg.Server.Port, healthCheck, log)

	return app, nil
}

// Start launches the update loop, reaper and operational server.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go a.reaper.Start(runCtx)

	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("operational server failed", "error", err)
		}
	}()

	go func() {
		defer close(a.done)
		a.telegram.Run(runCtx)
	}()

	return nil
}

// Stop shuts everything down, waiting for the update loop to drain.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	select {
	case <-a.done:
	case <-ctx.Done():
		a.log.Warn("update loop did not drain before deadline")
	}

	if err := a.healthServer.Stop(ctx); err != nil {
		a.log.Warn("operational server shutdown failed", "error", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("redis shutdown failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("database shutdown failed", "error", err)
		}
	}
	return nil
}
