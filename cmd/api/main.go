package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-routing/internal/api/http"
	"github.com/spec-kit/ticket-routing/internal/api/http/handlers"
	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/escalation"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/gate"
	"github.com/spec-kit/ticket-routing/internal/notify"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/persistence"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/rules"
	"github.com/spec-kit/ticket-routing/internal/service"
	"github.com/spec-kit/ticket-routing/internal/sla"
	"github.com/spec-kit/ticket-routing/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		ticketStore repository.TicketStore
		agents      repository.AgentDirectory
	)
	if pool != nil {
		ticketStore = repository.NewTicketRepository(pool)
		agents = repository.NewAgentRepository(pool)
	} else {
		memory := repository.NewMemoryTicketStore()
		ticketStore = memory
		agents = memory
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var rateStore gate.RateLimitStore
	probedRedis := redis
	if err := redis.Ping(ctx); err == nil {
		rateStore = repository.NewRedisRateLimitStore(redis.Client, cfg.Gate.RateIdleTTL())
	} else {
		logger.Warn("redis unavailable; rate limit state held in memory", zap.Error(err))
		rateStore = gate.NewMemoryRateLimitStore()
		probedRedis = nil
	}

	ruleSet, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("failed to load rule file", zap.Error(err))
	}
	for _, warning := range rules.Validate(ruleSet.Rules) {
		logger.Warn("rule validation", zap.String("warning", warning))
	}

	var notifier notify.Notifier
	if cfg.NATS.Enabled {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NATS)
		if err != nil {
			logger.Fatal("failed to connect nats", zap.Error(err))
		}
		defer natsNotifier.Close() //nolint:errcheck
		notifier = natsNotifier
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher()
	clk := clock.Real{}

	calculator := sla.NewCalculator(sla.WithNearBreachWindow(cfg.SLA.NearBreachWindow()))

	rateGate := gate.NewRateGate(rateStore, clk, logger, gate.RateGateConfig{
		MaxRequests: cfg.Gate.RateMaxRequests,
		Window:      cfg.Gate.RateWindow(),
		IdleTTL:     cfg.Gate.RateIdleTTL(),
	})
	scorer := gate.NewContentScorer(ruleSet.Patterns, gate.ScoreThresholds{
		Flag:       cfg.Gate.ScoreFlagThreshold,
		Quarantine: cfg.Gate.ScoreQuarantineMin,
		Block:      cfg.Gate.ScoreBlockThreshold,
	})
	spamGate := gate.NewSpamGate(rateGate, scorer, logger)

	engine := rules.NewEngine(ruleSet.Rules, rules.Dependencies{
		Store:    ticketStore,
		Agents:   agents,
		Notifier: notifier,
		Clock:    clk,
		Logger:   logger,
	})

	scheduler := escalation.NewScheduler(escalation.Dependencies{
		Store:      ticketStore,
		Engine:     engine,
		Calculator: calculator,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
		Metrics:    metrics,
	}, escalation.Config{
		Interval:        cfg.Scheduler.Interval(),
		ReescalateAfter: cfg.Scheduler.ReescalateAfter(),
	})

	complianceService := service.NewComplianceService(service.Dependencies{
		Store:      ticketStore,
		Engine:     engine,
		Calculator: calculator,
		Gate:       spamGate,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Clock:      clk,
		Metrics:    metrics,
	})

	worker.StartAuditWorker(dispatcher, logger)
	worker.StartEscalationWorker(ctx, scheduler)
	worker.StartRateSweepWorker(ctx, spamGate, cfg.Gate.RateSweepInterval(), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, probedRedis)
	complianceHandler := handlers.NewComplianceHandler(complianceService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     healthHandler,
		Compliance: complianceHandler,
		Registry:   registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
