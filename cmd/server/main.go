package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/fibc/backend/internal/application/ledger"
	planningapp "github.com/fibc/backend/internal/application/planning"
	productionapp "github.com/fibc/backend/internal/application/production"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/infrastructure/auth"
	"github.com/fibc/backend/internal/infrastructure/cache"
	"github.com/fibc/backend/internal/infrastructure/config"
	"github.com/fibc/backend/internal/infrastructure/event"
	"github.com/fibc/backend/internal/infrastructure/logger"
	"github.com/fibc/backend/internal/infrastructure/metrics"
	"github.com/fibc/backend/internal/infrastructure/persistence"
	"github.com/fibc/backend/internal/infrastructure/realtime"
	"github.com/fibc/backend/internal/infrastructure/telemetry"
	"github.com/fibc/backend/internal/interfaces/http/handler"
	"github.com/fibc/backend/internal/interfaces/http/middleware"
	"github.com/fibc/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	slowQueryThreshold = 200 * time.Millisecond
	shutdownTimeout    = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting FIBC backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), slowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if cfg.Database.AutoMigrate || db.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBName:     cfg.Database.DBName,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}

	registry := metrics.NewRegistry()

	// Event bus and subscribers
	serializer := event.NewEventSerializer()
	event.RegisterPlantEvents(serializer)
	bus := event.NewInMemoryEventBus(log)
	bus.SetObserver(registry.ObserveDispatch)

	idempotency, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotency.Close()
	}()

	if cfg.Events.KafkaEnabled {
		writer := event.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		forwarder := event.NewKafkaForwarder(writer, serializer, log)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Warn("Error closing Kafka writer", zap.Error(err))
			}
		}()
		bus.Subscribe(event.NewIdempotentHandler(forwarder, idempotency, log, event.WithDedupObserver(registry.ObserveForward)))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.KafkaTopic),
		)
	}

	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(serializer, log)
		bus.Subscribe(hub)
		go hub.Run(ctx)
	}

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories and services
	scope := persistence.NewGormTransactionScope(db.DB)
	policy := identity.DepartmentPolicy{Enforce: cfg.Auth.EnforceDepartmentScope}
	tolerance, err := ledger.NewTolerancePolicy(cfg.Ledger.BalanceTolerance)
	if err != nil {
		log.Fatal("Invalid ledger tolerance", zap.Error(err))
	}

	repos := productionapp.Repositories{
		Machines:     persistence.NewGormMachineRepository(db.DB),
		Units:        persistence.NewGormUnitRepository(db.DB),
		Consumptions: persistence.NewGormConsumptionRepository(db.DB),
		Transfers:    persistence.NewGormTransferLogRepository(db.DB),
		Shifts:       persistence.NewGormShiftRepository(db.DB),
	}

	ledgerService := ledgerapp.NewService(
		scope.Ledger(),
		persistence.NewGormMaterialRepository(db.DB),
		persistence.NewGormMovementRepository(db.DB),
		tolerance,
		log,
	)
	ledgerService.SetEventPublisher(bus)
	ledgerService.SetIdempotencyStore(idempotency)

	machineService := productionapp.NewMachineService(repos.Machines, log)
	unitService := productionapp.NewUnitService(scope.Production(), repos, policy, log)
	unitService.SetEventPublisher(bus)
	shiftService := productionapp.NewShiftService(scope.Production(), repos, policy, log)
	shiftService.SetEventPublisher(bus)

	orderService := planningapp.NewOrderService(
		scope.Planning(),
		persistence.NewGormOrderRepository(db.DB),
		persistence.NewGormProductSpecRepository(db.DB),
		log,
	)
	orderService.SetEventPublisher(bus)
	taskService := planningapp.NewTaskService(scope.Planning(), persistence.NewGormTaskRepository(db.DB), policy, log)
	taskService.SetEventPublisher(bus)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.App.Name, cfg.Telemetry.Enabled),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Metrics(registry),
	)

	systemHandler := handler.NewSystemHandler(sqlDB, version)
	engine.GET("/health", systemHandler.Health)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(registry.Handler()))
	}

	handlers := router.Handlers{
		Ledger:   handler.NewLedgerHandler(ledgerService),
		Machines: handler.NewMachineHandler(machineService),
		Shifts:   handler.NewShiftHandler(shiftService),
		Units:    handler.NewUnitHandler(unitService),
		Orders:   handler.NewOrderHandler(orderService),
		Tasks:    handler.NewTaskHandler(taskService),
		System:   systemHandler,
	}
	if hub != nil {
		handlers.Realtime = handler.NewRealtimeHandler(hub, cfg.HTTP.CORSAllowOrigins)
	}

	r := router.NewRouter(engine, router.WithMiddleware(middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		Authenticator:   auth.NewJWTService(cfg.JWT),
		AllowQueryToken: cfg.Realtime.Enabled,
		Logger:          log,
	})))
	router.RegisterPlant(r, handlers).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if hub != nil {
		select {
		case <-hub.Done():
		case <-shutdownCtx.Done():
		}
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
