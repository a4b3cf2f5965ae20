package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
	"github.com/erp/governance/internal/infrastructure/auth"
	"github.com/erp/governance/internal/infrastructure/config"
	"github.com/erp/governance/internal/infrastructure/logger"
	"github.com/erp/governance/internal/infrastructure/persistence"
	"github.com/erp/governance/internal/infrastructure/scheduler"
	"github.com/erp/governance/internal/infrastructure/store"
	"github.com/erp/governance/internal/infrastructure/telemetry"
	"github.com/erp/governance/internal/interfaces/http/handler"
	"github.com/erp/governance/internal/interfaces/http/middleware"
	"github.com/erp/governance/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting governance service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version))

	if err := run(cfg, log); err != nil {
		log.Fatal("Service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	clock := shared.SystemClock{}

	// Telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("telemetry init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meterProvider.Shutdown(shutdownCtx)
	}()

	// Persistence for configs and alerts; memory fallback for
	// single-instance deployments without a database
	var (
		db         *persistence.Database
		configRepo governance.ConfigRepository
		alertRepo  governance.AlertRepository
	)
	if cfg.Database.Host != "" {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
		db, err = persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			return fmt.Errorf("database init: %w", err)
		}
		defer func() { _ = db.Close() }()

		configRepo = persistence.NewRateLimitConfigRepository(db.DB)
		alertRepo = persistence.NewAlertRepository(db.DB)
		log.Info("Using PostgreSQL for configs and alerts", zap.String("host", cfg.Database.Host))
	} else {
		configRepo = store.NewMemoryConfigRepository()
		alertRepo = store.NewMemoryAlertRepository()
		log.Warn("No database configured, configs and alerts are not persisted")
	}

	// Counter and ledger stores
	var redisClient *redis.Client
	needsRedis := cfg.Governance.CounterBackend == "redis" || cfg.Governance.LedgerBackend == "redis"
	if needsRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
	}

	var counterStore governance.CounterStore
	if cfg.Governance.CounterBackend == "redis" {
		counterStore = store.NewRedisCounterStore(redisClient, "gov:rl")
	} else {
		counterStore = store.NewMemoryCounterStore()
	}

	var ledgerStore governance.LedgerStore
	if cfg.Governance.LedgerBackend == "redis" {
		ledgerStore = store.NewRedisLedgerStore(redisClient, "gov:quota")
	} else {
		ledgerStore = store.NewMemoryLedgerStore()
	}

	// Tenant directory and benchmark reference data. In production both
	// are fed by the surrounding platform.
	tenants := store.NewMemoryTenantDirectory(nil)
	reference := store.NewStaticReferenceTable(nil)

	if err := seedDefaultConfig(ctx, cfg, configRepo, log); err != nil {
		return err
	}

	// Governance metrics. The open-alert gauge needs a repository that
	// can count open alerts, which only the database-backed one does.
	govMetricsCfg := telemetry.GovernanceMetricsConfig{
		Meter:  meterProvider.Meter("governance"),
		Logger: log,
	}
	if provider, ok := alertRepo.(telemetry.OpenAlertProvider); ok {
		govMetricsCfg.AlertProvider = provider
	}
	govMetrics, err := telemetry.NewGovernanceMetrics(govMetricsCfg)
	if err != nil {
		return fmt.Errorf("governance metrics init: %w", err)
	}

	// Application services
	alertService := appgov.NewAlertService(alertRepo, clock, log)
	quotaObserver := newQuotaObserver(alertService, govMetrics, meterProvider.IsEnabled())

	metricsStore := store.NewMemoryMetricsStore()
	resolver := appgov.NewResolverService(configRepo, log)
	admissionService := appgov.NewAdmissionService(counterStore, resolver, clock, log)
	ledgerService := appgov.NewLedgerService(ledgerStore, tenants, quotaObserver, clock, log)
	metricsService := appgov.NewMetricsService(metricsStore, tenants, clock, log)
	benchmarkService := appgov.NewBenchmarkService(tenants, metricsStore, reference, clock, log)

	if meterProvider.IsEnabled() {
		if govMetricsCfg.AlertProvider != nil {
			govMetrics.StartPeriodicCollection(ctx, time.Minute)
		}
		defer govMetrics.Stop()
	}

	if db != nil && meterProvider.IsEnabled() {
		sqlDB, sqlErr := db.SQLDB()
		if sqlErr == nil {
			dbMetrics, dbmErr := telemetry.NewDBMetrics(meterProvider.Meter("database"), sqlDB, 30*time.Second, log)
			if dbmErr != nil {
				return fmt.Errorf("db metrics init: %w", dbmErr)
			}
			dbMetrics.Start(ctx)
			defer dbMetrics.Stop()
		}
	}

	// Background jobs
	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		runner = scheduler.NewRunner(log)
		if err := runner.Register(scheduler.NewSweepTask(counterStore, clock, log), cfg.Scheduler.SweepInterval); err != nil {
			return err
		}
		if err := runner.Register(scheduler.NewRetentionTask(metricsService, log), cfg.Scheduler.RetentionPurge); err != nil {
			return err
		}
		if err := runner.Register(scheduler.NewAnomalyTask(admissionService, alertService, log), cfg.Scheduler.SweepInterval); err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("scheduler start: %w", err)
		}
	}

	// HTTP server
	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(logger.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	metricsMiddleware, err := middleware.HTTPMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("http metrics init: %w", err)
	}
	engine.Use(metricsMiddleware)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Logger = log
	jwtCfg.AllowTenantHeader = cfg.App.Env == "development"
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))
	engine.Use(middleware.RateLimit(&meteredAdmitter{admission: admissionService, metrics: govMetrics, enabled: meterProvider.IsEnabled()}))

	// A typed nil would still ping, so only hand the handler a real database
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}

	router.NewRouter(engine).
		Register(handler.NewSystemHandler(pinger, version)).
		Register(handler.NewAdmissionHandler(admissionService, log)).
		Register(handler.NewQuotaHandler(ledgerService, log)).
		Register(handler.NewMetricsHandler(metricsService, log)).
		Register(handler.NewAlertHandler(alertService, log)).
		Register(handler.NewConfigHandler(appgov.NewConfigService(configRepo, log), log)).
		Register(handler.NewBenchmarkHandler(benchmarkService, log)).
		Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler shutdown failed", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
	return nil
}

// seedDefaultConfig installs a global fallback limit when the store is
// empty and the deployment overrides the built-in default
func seedDefaultConfig(ctx context.Context, cfg *config.Config, repo governance.ConfigRepository, log *zap.Logger) error {
	if cfg.Governance.DefaultRequestsPerMinute <= 0 {
		return nil
	}
	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("config list: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	global, err := governance.NewRateLimitConfig(governance.ScopeGlobal, "", governance.LimitSet{
		PerMinute: int64(cfg.Governance.DefaultRequestsPerMinute),
	})
	if err != nil {
		return fmt.Errorf("default config: %w", err)
	}
	if err := repo.Save(ctx, global); err != nil {
		return fmt.Errorf("default config save: %w", err)
	}
	log.Info("Seeded global rate limit config",
		zap.Int("requests_per_minute", cfg.Governance.DefaultRequestsPerMinute))
	return nil
}

// quotaObserver fans quota outcomes out to alerting and telemetry
type quotaObserver struct {
	alerts  *appgov.AlertService
	metrics *telemetry.GovernanceMetrics
	enabled bool
}

func newQuotaObserver(alerts *appgov.AlertService, metrics *telemetry.GovernanceMetrics, enabled bool) *quotaObserver {
	return &quotaObserver{alerts: alerts, metrics: metrics, enabled: enabled}
}

func (o *quotaObserver) QuotaConsumed(ctx context.Context, tenantID uuid.UUID, result governance.QuotaResult) {
	o.alerts.QuotaConsumed(ctx, tenantID, result)
	if !o.enabled {
		return
	}
	o.metrics.RecordQuotaDecision(ctx, tenantID.String(), result.Dimension.String(), result.Allowed)
	if result.SuggestedTier != nil {
		o.metrics.RecordUpgradeSuggested(ctx, tenantID.String(), result.Dimension.String())
	}
}

// meteredAdmitter records admission latency and outcome around the
// admission service
type meteredAdmitter struct {
	admission *appgov.AdmissionService
	metrics   *telemetry.GovernanceMetrics
	enabled   bool
}

func (a *meteredAdmitter) Admit(ctx context.Context, req appgov.AdmissionRequest) appgov.AdmissionDecision {
	start := time.Now()
	decision := a.admission.Admit(ctx, req)
	if a.enabled {
		a.metrics.RecordAdmission(ctx, req.TenantID, decision.Allowed, time.Since(start))
	}
	return decision
}
