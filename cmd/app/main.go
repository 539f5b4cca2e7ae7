// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/infra/adapters/notify"
	payAdapters "marketplace-payments/internal/infra/adapters/payment"
	"marketplace-payments/internal/infra/api"
	pg "marketplace-payments/internal/infra/db/postgres"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/metrics"
	red "marketplace-payments/internal/infra/redis"
	"marketplace-payments/internal/infra/sched"
	"marketplace-payments/internal/infra/worker"
	"marketplace-payments/internal/usecase"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Payments.DemoMode {
		logger.Warn().Msg("[DEMO MODE] payments succeed without the provider")
	}
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewPostgresUserRepo(pool), redisClient)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient)
	payRepo := pg.NewPaymentRepo(pool)
	agentRepo := pg.NewAgentRepo(pool)
	agentPkgRepo := pg.NewAgentPackageRepo(pool)
	businessRepo := pg.NewBusinessRepo(pool)
	requestRepo := pg.NewBusinessRequestRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	promoRepo := pg.NewPromotionRepo(pool)
	commissionRepo := pg.NewCommissionRepo(pool)
	coinPkgRepo := pg.NewCoinPackageRepo(pool)
	walletRepo := pg.NewWalletRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)

	// ---- Worker pool (audit fan-out + reconciliation) ----
	workers := worker.NewPool("payments", cfg.Payments.Workers, cfg.Payments.BatchSize, logger)
	workers.Start(ctx)

	// ---- Notifications ----
	logSink := notify.NewLogSink(logger)
	var sink adapter.AuditSink = logSink
	var kafkaSink *notify.KafkaAuditSink
	if cfg.Kafka.Brokers != "" {
		kafkaSink, err = notify.NewKafkaAuditSink(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka")
		}
		sink = kafkaSink
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("audit events go to kafka")
	}
	alerter := buildAlerter(cfg, logSink, logger)
	events := usecase.NewEventPublisher(sink, alerter, workers, logger)

	// ---- Gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Payments.DemoMode || cfg.Gateway.APIKey == "" {
		gateway = payAdapters.NewMemoryGateway()
	} else {
		gateway, err = payAdapters.NewMobileMoneyGateway(cfg.Gateway)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway")
		}
	}
	logger.Info().Str("gateway", gateway.Name()).Str("base_url", cfg.Gateway.BaseURL).Msg("payment gateway ready")

	// ---- Use cases ----
	commissions := usecase.NewCommissionEngine(commissionRepo, agentRepo, userRepo, tm, locker, events, usecase.CommissionPolicy{
		ActivationAmount: decimal.NewFromInt(cfg.Commission.ActivationAmount),
		ReferralAmount:   decimal.NewFromInt(cfg.Commission.ReferralAmount),
		LockTTL:          cfg.Commission.LockTTL,
	}, logger)
	durations := model.DefaultPlanDurations()
	for tier, days := range cfg.Subscription.DurationDays {
		t, err := model.ParsePlanTier(tier)
		if err != nil {
			logger.Fatal().Str("tier", tier).Msg("unknown subscription tier in duration_days")
		}
		durations[t] = days
	}
	activations := usecase.NewActivationService(usecase.ActivationRepos{
		Agents:        agentRepo,
		AgentPackages: agentPkgRepo,
		Businesses:    businessRepo,
		Requests:      requestRepo,
		Subscriptions: subRepo,
		Plans:         planRepo,
		Promotions:    promoRepo,
		CoinPackages:  coinPkgRepo,
		Wallets:       walletRepo,
		Orders:        orderRepo,
	}, commissions, durations, logger)
	dispatcher := usecase.NewActivationDispatcher(activations.Handlers(), events, logger)
	ledger := usecase.NewPaymentLedger(payRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(ledger, gateway, dispatcher, tm, events, usecase.PaymentSettings{
		DemoMode: cfg.Payments.DemoMode,
		Grace:    cfg.Payments.GraceWindow,
	}, logger)

	fees := usecase.Fees{
		AgentRegistration:  decimal.NewFromInt(cfg.Payments.AgentRegistrationFee),
		BusinessActivation: decimal.NewFromInt(cfg.Payments.BusinessActivationFee),
	}
	userUC := usecase.NewUserUseCase(userRepo, agentRepo, tm, logger)
	agentUC := usecase.NewAgentUseCase(agentRepo, agentPkgRepo, businessRepo, userRepo, tm, paymentUC, commissions, fees, logger)
	requestUC := usecase.NewBusinessRequestUseCase(requestRepo, businessRepo, agentRepo, tm, paymentUC, activations, fees, logger)
	subUC := usecase.NewSubscriptionUseCase(planRepo, subRepo, businessRepo, tm, paymentUC, logger)
	promoUC := usecase.NewPromotionUseCase(promoRepo, tm, paymentUC, logger)
	walletUC := usecase.NewWalletUseCase(coinPkgRepo, walletRepo, paymentUC, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, paymentUC, logger)
	catalogUC := usecase.NewCatalogUseCase(planRepo, agentPkgRepo, coinPkgRepo)
	notifUC := usecase.NewNotificationUseCase(subRepo, businessRepo, events, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, payRepo, 10*cfg.Payments.ReconcileInterval, logger)

	// ---- Background jobs ----
	reconciler := sched.NewPaymentReconciler(paymentUC, workers, sched.ReconcilerOptions{
		Interval:    cfg.Payments.ReconcileInterval,
		BatchSize:   cfg.Payments.BatchSize,
		PollTimeout: cfg.Payments.PollTimeout,
	}, logger)
	go func() { _ = reconciler.Run(ctx) }()

	expiry := sched.NewExpiryWorker(cfg.Subscription.ExpiryInterval, subUC, notifUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	sweeper := sched.NewPromotionSweeper(cfg.Promotion.SweepInterval, promoUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.HTTP.JWTSecret, 24*time.Hour)
	srv := api.NewServer(cfg.HTTP, api.Deps{
		Payments:         paymentUC,
		Users:            userUC,
		Stats:            statsUC,
		Agents:           agentUC,
		BusinessRequests: requestUC,
		Subscriptions:    subUC,
		Promotions:       promoUC,
		Wallets:          walletUC,
		Orders:           orderUC,
		Catalog:          catalogUC,
		Limiter:          rateLimiter,
	}, auth, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	workers.Stop()
	if kafkaSink != nil {
		kafkaSink.Close()
	}
	logger.Info().Msg("bye")
}

// buildAlerter fans ops alerts out to every configured channel and falls
// back to the log when none is.
func buildAlerter(cfg *config.Config, fallback adapter.OpsAlerter, logger *zerolog.Logger) adapter.OpsAlerter {
	var channels notify.MultiAlerter
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramAlerter(cfg.Telegram)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram alerts disabled")
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.Email.SMTPAddr != "" {
		em, err := notify.NewEmailAlerter(cfg.Email)
		if err != nil {
			logger.Warn().Err(err).Msg("email alerts disabled")
		} else {
			channels = append(channels, em)
		}
	}
	if len(channels) == 0 {
		return fallback
	}
	return channels
}
