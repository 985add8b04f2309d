// Package server assembles the timecaddy account server: storage, token
// store, flows, email delivery and the gRPC endpoint, and runs it until a
// termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/config"
	"github.com/dmitrijs2005/timecaddy/internal/server/confirmation"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/notify"
	"github.com/dmitrijs2005/timecaddy/internal/server/passwordreset"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timecaddy/internal/server/services"
	"github.com/dmitrijs2005/timecaddy/internal/server/tokenstore"
	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v2"

	gs "github.com/dmitrijs2005/timecaddy/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sqlx.DB
	redis    *redis.Client
	accounts *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Development: c.IsDevelopment(), SentryDSN: c.SentryDSN})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	store := tokenstore.NewRedisStore(client)
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		_ = client.Close()
		return nil, fmt.Errorf("token store init error: %w", err)
	}

	svc := buildAccountService(c, db, rm, store, newNotifier(c, logger), logger)

	return &App{config: c, logger: logger, db: db, redis: client, accounts: svc}, nil
}

// buildAccountService wires the flows over the given storage.
func buildAccountService(c *config.Config, db *sqlx.DB, rm repomanager.RepositoryManager, store tokenstore.Store,
	n notify.Notifier, logger logging.Logger) *services.AccountService {
	hasher := credentials.NewHasher(credentials.Params{
		Time:      c.Argon2Time,
		MemoryKiB: c.Argon2MemoryKiB,
		Threads:   c.Argon2Threads,
	})
	lc := accounts.NewLifecycle(db, rm, c.InactivityWindow, logger)

	confirmations := confirmation.NewFlow(store, lc, hasher, confirmation.Config{
		Cooldown: c.ConfirmationCooldown,
		Lifespan: c.ConfirmationLifespan,
	}, logger)

	resets := passwordreset.NewFlow(db, rm, store, lc, hasher, passwordreset.Config{
		Lifespan:    c.ResetLifespan,
		Window:      c.ResetWindow,
		MaxRequests: c.ResetMaxRequests,
		Cooldown:    c.ResetCooldown,
	}, logger)

	return services.NewAccountService(services.Dependencies{
		DB:            db,
		Repositories:  rm,
		Lifecycle:     lc,
		Hasher:        hasher,
		Confirmations: confirmations,
		Resets:        resets,
		Notifier:      n,
		Templates:     notify.Templates{AppName: c.AppName, AppURL: c.AppURL, SupportEmail: c.SupportEmail},
		Logger:        logger,
	})
}

// newNotifier logs emails in development and sends them through Resend
// otherwise.
func newNotifier(c *config.Config, logger logging.Logger) notify.Notifier {
	if c.IsDevelopment() {
		return notify.NewLogNotifier(logger)
	}
	var client *resend.Client
	if c.ResendAPIKey != "" {
		client = resend.NewClient(c.ResendAPIKey)
	}
	return notify.NewResendNotifier(client, c.EmailFrom, logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, gs.Options{
		RequestTimeout: app.config.RequestTimeout,
		RateLimitRPS:   app.config.RateLimitRPS,
		RateLimitBurst: app.config.RateLimitBurst,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	sentry.Flush(2 * time.Second)
	app.logger.Info(ctx, "App stopped")
}
