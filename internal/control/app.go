// Package control wires the configured components together and manages
// their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/walletnotify/internal/core/config"
	"github.com/vietddude/walletnotify/internal/emitter"
	"github.com/vietddude/walletnotify/internal/health"
	"github.com/vietddude/walletnotify/internal/infra/chain"
	"github.com/vietddude/walletnotify/internal/infra/chain/bitcoin"
	redisclient "github.com/vietddude/walletnotify/internal/infra/redis"
	"github.com/vietddude/walletnotify/internal/infra/rpc"
	"github.com/vietddude/walletnotify/internal/infra/storage"
	"github.com/vietddude/walletnotify/internal/infra/storage/memory"
	"github.com/vietddude/walletnotify/internal/infra/storage/postgres"
	"github.com/vietddude/walletnotify/internal/ledger"
	"github.com/vietddude/walletnotify/internal/notify"
	"github.com/vietddude/walletnotify/internal/reconcile"
	"github.com/vietddude/walletnotify/internal/wallet"
)

var _ reconcile.SendConfirmer = (*wallet.Service)(nil)

// Services are the components shared by the daemon and the one-shot
// commands.
type Services struct {
	Config *config.AppConfig
	Store  storage.Store
	Node   chain.Node
	Ledger *ledger.Ledger
	Wallet *wallet.Service

	db  *postgres.DB
	rpc *rpc.Client
}

// NewServices opens the store and the node connection.
func NewServices(ctx context.Context, cfg *config.AppConfig) (*Services, error) {
	s := &Services{Config: cfg}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.Store = postgres.NewStore(db)
		slog.Info("Using PostgreSQL storage", "driver", cfg.Database.Driver)
	} else {
		s.Store = memory.NewMemoryStorage()
		slog.Warn("Using Memory storage, state is lost on exit")
	}

	client, err := rpc.NewClient(cfg.RPC)
	if err != nil {
		_ = s.Store.Close()
		return nil, err
	}
	s.rpc = client

	node, err := bitcoin.NewAdapter(client, cfg.Netcode)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Node = node

	s.Ledger = ledger.New(s.Store, cfg.Currency)
	s.Wallet = wallet.NewService(wallet.Config{
		Network:  cfg.Network,
		Netcode:  cfg.Netcode,
		Currency: cfg.Currency,
	}, s.Node, s.Store, s.Ledger)

	return s, nil
}

// Close releases the store and node connections.
func (s *Services) Close() {
	if s.rpc != nil {
		_ = s.rpc.Close()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}
}

// App is the long-running notification daemon.
type App struct {
	services     *Services
	supervisor   *Supervisor
	emitter      emitter.Emitter
	healthServer *health.Server
	log          *slog.Logger
}

// NewApp creates the daemon with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	services, err := NewServices(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var em emitter.Emitter = emitter.NewLogEmitter()
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, events are logged only", "error", err)
		} else {
			em = emitter.Multi{em, emitter.NewRedisEmitter(client, cfg.Redis.StreamPrefix, cfg.Redis.StreamMaxLen)}
			slog.Info("Publishing events to Redis", "prefix", cfg.Redis.StreamPrefix)
		}
	}

	rcfg := reconcile.Config{
		Network:       cfg.Network,
		Currency:      cfg.Currency,
		Confirmations: cfg.Confirmations,
		CallTimeout:   cfg.RPC.Timeout,
	}

	supervisor := NewSupervisor(
		PipeConfig{Path: cfg.Notify.Pipe, Mode: cfg.Notify.Mode, Group: cfg.Notify.Group},
		cfg.Network,
		func(q *notify.TxQueue) *reconcile.TxWorker {
			return reconcile.NewTxWorker(rcfg, services.Node, services.Store, services.Ledger, services.Wallet, em, q)
		},
		func(c *notify.Coalescer) *reconcile.BlockWorker {
			return reconcile.NewBlockWorker(rcfg, services.Node, services.Store, services.Ledger, em, c)
		},
	)

	monitor := health.NewMonitor(cfg.Network, services.Node, services.Store, supervisor)

	return &App{
		services:     services,
		supervisor:   supervisor,
		emitter:      em,
		healthServer: health.NewServer(monitor, cfg.Server.Port),
		log:          slog.Default().With("component", "app"),
	}, nil
}

// Start starts the daemon and all its components.
func (a *App) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if a.services.db != nil {
		a.services.db.StartMetricsCollector(ctx)
	}

	return a.supervisor.Start(ctx)
}

// Stop drains the workers and releases every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping walletnotify...")

	err := a.supervisor.Stop(ctx)

	if herr := a.healthServer.Stop(ctx); herr != nil {
		a.log.Warn("Failed to stop health server", "error", herr)
	}
	if eerr := a.emitter.Close(); eerr != nil {
		a.log.Warn("Failed to close emitter", "error", eerr)
	}
	a.services.Close()

	return err
}
