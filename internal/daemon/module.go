package daemon

import (
	"context"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/bus"
	"github.com/ArkBriar/smartqq/internal/config"
	"github.com/ArkBriar/smartqq/internal/lock"
	"github.com/ArkBriar/smartqq/internal/logging"
	"github.com/ArkBriar/smartqq/internal/outbox"
	"github.com/ArkBriar/smartqq/internal/qq"
	"github.com/ArkBriar/smartqq/internal/session"
	"github.com/ArkBriar/smartqq/internal/status"
	"github.com/ArkBriar/smartqq/internal/store"
	intsync "github.com/ArkBriar/smartqq/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default

	// Endpoints overrides the SmartQQ endpoint table, for tests.
	Endpoints *qq.Endpoints
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideAdapter,
			provideSyncEngine,
			provideRefresher,
			provideSender,
			provideControl,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is only opened by its owner.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAdapter(p Params, cfg *config.Config, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *adapter.Adapter {
	return adapter.New(b, machine, logger.Named("adapter"), adapter.Options{
		QRPath:    session.QRPath(p.SessionName),
		QRViewer:  cfg.QRViewer,
		Endpoints: p.Endpoints,
	})
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func provideRefresher(db *store.DB, b *bus.Bus, a *adapter.Adapter, logger *zap.Logger) *intsync.Refresher {
	return intsync.NewRefresher(db, b, a, logger)
}

func provideSender(db *store.DB, a *adapter.Adapter, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, a, b, logger)
}

func provideControl(p Params, machine *status.Machine, a *adapter.Adapter, b *bus.Bus, db *store.DB, refresher *intsync.Refresher, sender *outbox.Sender, logger *zap.Logger) *api.Control {
	return &api.Control{
		SessionService: api.NewSessionService(p.SessionName, machine, a, b, db),
		ContactService: api.NewContactService(a, refresher, db),
		ChatService:    api.NewChatService(db),
		MessageService: api.NewMessageService(db, sender),
		EventService:   api.NewEventService(b, p.SessionName, logger),
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, a *adapter.Adapter, engine *intsync.Engine, refresher *intsync.Refresher, sender *outbox.Sender, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start sync engine (subscribes to qq.* bus events).
			engine.Start(ctx)

			// Mirror contact lists after every successful login.
			logins, unsub := b.Subscribe(bus.KindAuthenticated, 4)
			go func() {
				defer close(watchDone)
				defer unsub()
				refreshOnLogin(ctx, logins, refresher, logger)
			}()

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()

			sender.Start(ctx)

			// Sessions are not persisted; every daemon run starts with a QR login.
			logger.Info("auth required, run the login command to scan a QR code")
			return machine.Transition(status.AuthRequired)
		},
		OnStop: func(stopCtx context.Context) error {
			sender.Stop()
			engine.Stop()
			a.Close()
			cancel()
			<-watchDone
			srv.Stop(stopCtx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

func refreshOnLogin(ctx context.Context, logins <-chan bus.Event, refresher *intsync.Refresher, logger *zap.Logger) {
	for {
		select {
		case <-logins:
			if err := refresher.Refresh(ctx); err != nil {
				logger.Warn("contact refresh after login incomplete", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
