package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/codit04/cypherd/internal/adapter/http"
	"github.com/codit04/cypherd/internal/adapter/http/handler"
	"github.com/codit04/cypherd/internal/adapter/http/middleware"
	"github.com/codit04/cypherd/internal/adapter/notifier"
	"github.com/codit04/cypherd/internal/adapter/oracle"
	"github.com/codit04/cypherd/internal/adapter/repository/memory"
	postgresRepo "github.com/codit04/cypherd/internal/adapter/repository/postgres"
	redisRepo "github.com/codit04/cypherd/internal/adapter/repository/redis"
	"github.com/codit04/cypherd/internal/infrastructure/config"
	"github.com/codit04/cypherd/internal/infrastructure/ethsig"
	"github.com/codit04/cypherd/internal/infrastructure/eventpublisher"
	"github.com/codit04/cypherd/internal/infrastructure/logger"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
	"github.com/codit04/cypherd/internal/infrastructure/postgres"
	"github.com/codit04/cypherd/internal/infrastructure/redis"
	"github.com/codit04/cypherd/internal/infrastructure/scheduler"
	"github.com/codit04/cypherd/internal/usecase"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "cypherd",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// ledgerStorage groups the repositories of one ledger backend.
type ledgerStorage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	preferences  usecase.NotificationPreferencesRepository
	retrier      usecase.Retrier
	pool         *pgxpool.Pool
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New(nil)

	storage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	if storage.pool != nil {
		defer storage.pool.Close()
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	approvals := buildApprovalStore(cfg, redisClient)

	priceOracle, err := buildOracle(cfg, log)
	if err != nil {
		return err
	}
	instrumentedOracle := oracle.NewInstrumented(priceOracle, m)

	delivery, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	publisher := buildPublisher(cfg, log)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close event publisher")
			}
		}()
	}

	// Use cases
	accountUC := usecase.NewAccountUseCase(storage.accounts)
	transactionUC := usecase.NewTransactionUseCase(storage.accounts, storage.transactions)
	notificationUC := usecase.NewNotificationUseCase(storage.preferences, delivery, m, log)
	approvalUC := usecase.NewApprovalUseCase(usecase.ApprovalConfig{
		AccountRepo:  storage.accounts,
		Approvals:    approvals,
		Oracle:       instrumentedOracle,
		TTL:          cfg.ApprovalTTL,
		QuoteTimeout: cfg.PriceOracleTimeout,
		Metrics:      m,
		Logger:       log,
	})
	transferUC := usecase.NewTransferUseCase(usecase.TransferConfig{
		TxManager:       storage.txManager,
		AccountRepo:     storage.accounts,
		TransactionRepo: storage.transactions,
		Approvals:       approvals,
		Verifier:        ethsig.NewVerifier(),
		Oracle:          instrumentedOracle,
		Guard:           usecase.NewPriceGuard(cfg.PriceTolerancePercent),
		Notifier:        notificationUC,
		Publisher:       publisher,
		Retrier:         storage.retrier,
		IDGen:           postgresRepo.NewULIDGenerator(),
		Metrics:         m,
		Logger:          log,
		QuoteTimeout:    cfg.PriceOracleTimeout,
		SettlementGrace: cfg.SettlementGrace,
	})

	sweeper, err := scheduler.New(cfg.ApprovalSweepSchedule, approvalUC, log)
	if err != nil {
		return err
	}
	sweeper.Start()

	routerCfg := httpAdapter.RouterConfig{
		ApprovalHandler:     handler.NewApprovalHandler(approvalUC, transferUC),
		AccountHandler:      handler.NewAccountHandler(accountUC),
		TransactionHandler:  handler.NewTransactionHandler(transactionUC),
		NotificationHandler: handler.NewNotificationHandler(notificationUC),
		IdempotencyTTL:      cfg.IdempotencyTTL,
		MetricsHandler:      promhttp.Handler(),
		Logger:              log,
	}
	if redisClient != nil {
		routerCfg.HealthHandler = handler.NewHealthHandler(storage.pool, redisClient)
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	} else {
		routerCfg.HealthHandler = handler.NewHealthHandler(storage.pool, nil)
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go cleanupLimiters(ctx, routerCfg.RateLimiter)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.HTTPPort).
			Str("ledger", cfg.LedgerBackend).
			Str("approvals", cfg.ApprovalStore).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("sweeper did not stop in time")
	}
	transferUC.Wait()

	log.Info().Msg("server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ledgerStorage, error) {
	seeds, err := memory.ParseSeedAccounts(cfg.SeedAccounts)
	if err != nil {
		return nil, err
	}

	if cfg.LedgerBackend == config.BackendMemory {
		ledger := memory.NewLedger()
		for _, account := range seeds {
			ledger.AddAccount(account)
		}
		log.Info().Int("accounts", len(seeds)).Msg("using in-memory ledger")

		return &ledgerStorage{
			txManager:    ledger,
			accounts:     ledger,
			transactions: memory.NewTransactionRepository(ledger),
			preferences:  memory.NewPreferencesRepository(ledger),
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Str("path", cfg.MigrationsPath).Msg("migrations applied")
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	accounts := postgresRepo.NewAccountRepository(pool)
	for _, account := range seeds {
		if err := accounts.Insert(ctx, account); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed account %s: %w", account.ID, err)
		}
	}

	return &ledgerStorage{
		txManager:    postgresRepo.NewTxManager(pool),
		accounts:     accounts,
		transactions: postgresRepo.NewTransactionRepository(pool),
		preferences:  postgresRepo.NewNotificationPreferencesRepository(pool),
		retrier:      postgresRepo.NewRetrier().WithLogger(log),
		pool:         pool,
	}, nil
}

func buildApprovalStore(cfg *config.Config, client *goredis.Client) usecase.ApprovalStore {
	if cfg.ApprovalStore == config.BackendRedis && client != nil {
		return redisRepo.NewApprovalStore(client, cfg.ApprovalRetention)
	}
	return memory.NewApprovalStore()
}

func buildOracle(cfg *config.Config, log zerolog.Logger) (usecase.PriceOracle, error) {
	if cfg.PriceOracleURL == "" {
		return oracle.NewStaticOracle(cfg.StaticEthPerUsd), nil
	}

	return oracle.NewSkipClient(nil, oracle.SkipConfig{
		URL:             cfg.PriceOracleURL,
		APIKey:          cfg.PriceOracleAPIKey,
		Timeout:         cfg.PriceOracleTimeout,
		SourceDenom:     cfg.PriceOracleSourceDenom,
		SourceChainID:   cfg.PriceOracleSourceChainID,
		DestDenom:       cfg.PriceOracleDestDenom,
		DestChainID:     cfg.PriceOracleDestChainID,
		QuoteAddress:    cfg.PriceOracleQuoteAddress,
		SlippagePercent: cfg.PriceOracleSlippage,
	}, log)
}

func buildNotifier(cfg *config.Config, log zerolog.Logger) (usecase.Notifier, error) {
	if cfg.NotifierWebhookURL == "" {
		return notifier.NewLogNotifier(log), nil
	}
	return notifier.NewWebhookNotifier(nil, cfg.NotifierWebhookURL, cfg.NotifierTimeout)
}

func buildPublisher(cfg *config.Config, log zerolog.Logger) usecase.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(log)
	}
	return eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(10 * time.Minute)
		}
	}
}
