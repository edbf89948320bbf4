package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"busfare/internal/app"
	"busfare/internal/config"
	"busfare/internal/fare"
	"busfare/internal/handler"
	"busfare/internal/ledger"
	"busfare/internal/lock"
	"busfare/internal/payrail"
	internalRedis "busfare/internal/redis"
	"busfare/internal/repository"
	"busfare/internal/repository/memory"
	"busfare/internal/repository/postgres"
	"busfare/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	var db *sql.DB
	if cfg.UsesPostgres() {
		db, err = app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL")
	}

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	server, err := wireServer(ctx, db, redisClient, nrApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire server")
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// stores groups the persistence backends chosen by STORE_DRIVER.
type stores struct {
	accounts    repository.AccountRepository
	history     repository.HistoryRepository
	openTrips   repository.TripRepository
	routes      repository.RouteRepository
	settlements repository.SettlementStore
}

func newStores(db *sql.DB) stores {
	if db != nil {
		return stores{
			accounts:    postgres.NewAccountRepository(db),
			history:     postgres.NewHistoryRepository(db),
			openTrips:   postgres.NewTripRepository(db),
			routes:      postgres.NewRouteRepository(db),
			settlements: postgres.NewSettlementStore(db),
		}
	}

	accounts := memory.NewAccountRepository()
	history := memory.NewHistoryRepository()
	return stores{
		accounts:    accounts,
		history:     history,
		openTrips:   memory.NewTripRepository(),
		routes:      memory.NewRouteRepository(),
		settlements: memory.NewSettlementStore(accounts, history),
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *logrus.Logger) (*http.Server, error) {
	st := newStores(db)

	// Payment rail.
	var (
		rail   payrail.Rail
		funder service.WalletFunder
	)
	if cfg.PayRail.Driver == "redis" && redisClient != nil {
		wallets := internalRedis.NewWalletStore(redisClient)
		rail, funder = wallets, wallets
	} else {
		wallets := payrail.NewWallets()
		rail, funder = wallets, wallets
	}
	rail = payrail.WithTimeout(rail, cfg.PayRail.Timeout)
	funder = payrail.FunderWithTimeout(funder, cfg.PayRail.Timeout)

	// Per-account lock.
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Lock.Driver == "redis" && redisClient != nil {
		locker = internalRedis.NewLockStore(redisClient, cfg.Lock.TTL)
	}

	var cache service.BalanceCache
	if redisClient != nil {
		cache = internalRedis.NewCacheStore(redisClient)
	}

	// Initialize services.
	notificationService := service.NewNotificationService(logger.WithField("component", "notify"))
	fareService := service.NewFareService(st.routes, cfg.Fare.RatePerSecond, notificationService)
	engine := service.NewSettlementEngine(rail, st.settlements, service.SettlementConfig{
		Recipient:      cfg.Fare.Recipient,
		Epsilon:        cfg.Fare.Epsilon,
		DebtTolerance:  cfg.Fare.DebtTolerance,
		MinimumDeposit: cfg.Fare.MinimumDeposit,
	}, logger.WithField("component", "settlement"))

	tripService := service.NewTripService(service.TripServiceDeps{
		Ledger:      ledger.New(),
		Calculator:  fare.NewCalculator(cfg.Fare.MinimumFare),
		Engine:      engine,
		Fares:       fareService,
		Accounts:    st.accounts,
		OpenTrips:   st.openTrips,
		Discounts:   service.StaticDiscounts(cfg.Discounts),
		Locker:      locker,
		Notifier:    notificationService,
		Receipts:    service.NewReceiptService(),
		DepositHold: cfg.Fare.DepositHold,
		Logger:      logger.WithField("component", "trip"),
	})
	accountService := service.NewAccountService(service.AccountServiceDeps{
		Accounts: st.accounts,
		History:  st.history,
		Rail:     rail,
		Engine:   engine,
		Locker:   locker,
		Cache:    cache,
		Funder:   funder,
		Notifier: notificationService,
		Logger:   logger.WithField("component", "account"),
	})
	adminService := service.NewAdminService(st.accounts, tripService, fareService, st.history, notificationService)

	if _, err := tripService.RestoreOpenTrips(ctx); err != nil {
		return nil, err
	}

	// Initialize handlers.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    handler.NewTripHandler(tripService, accountService, logger),
		AccountHandler: handler.NewAccountHandler(accountService, logger),
		AdminHandler:   handler.NewAdminHandler(adminService, fareService, logger),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
