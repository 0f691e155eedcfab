package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	escrowapp "github.com/factorline/backend/internal/application/escrow"
	tokenapp "github.com/factorline/backend/internal/application/token"
	"github.com/factorline/backend/internal/infrastructure/auth"
	"github.com/factorline/backend/internal/infrastructure/cache"
	"github.com/factorline/backend/internal/infrastructure/config"
	"github.com/factorline/backend/internal/infrastructure/logger"
	"github.com/factorline/backend/internal/infrastructure/persistence"
	"github.com/factorline/backend/internal/infrastructure/telemetry"
	"github.com/factorline/backend/internal/interfaces/http/handler"
	"github.com/factorline/backend/internal/interfaces/http/middleware"
	"github.com/factorline/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Factorline Escrow API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// SQLite runs the schema in-process; postgres deployments use the
	// migrate command instead.
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  200 * time.Millisecond,
			DBSystem:         cfg.Database.Driver,
			WithoutVariables: true,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Invoice read cache: Redis when configured, in-memory otherwise
	cacheFactory := cache.NewInvoiceCacheFactory(cfg.Redis, cfg.Escrow.CacheTTL,
		cache.WithLogger(log))
	invoiceCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize invoice cache", zap.Error(err))
	}

	// Initialize persistence and application services
	store := persistence.NewGormStore(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)
	escrowService := escrowapp.NewService(store, uow, log, escrowapp.WithCache(invoiceCache))
	tokenService := tokenapp.NewService(store, uow, log)

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(escrowService)
	accountHandler := handler.NewAccountHandler(tokenService, cfg.Escrow.FaucetEnabled)
	authHandler := handler.NewAuthHandler(jwtService, cfg.JWT.BootstrapSecret)
	systemHandler := handler.NewSystemHandler(db, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to setup validator", zap.Error(err))
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	if cfg.HTTP.RateLimitEnabled {
		ratePerSecond := float64(cfg.HTTP.RateLimitRequests) / cfg.HTTP.RateLimitWindow.Seconds()
		rateLimiter := middleware.NewRateLimiter(ratePerSecond, cfg.HTTP.RateLimitRequests)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Reads are public; writes require a signer token. The JWT middleware
	// validates tokens, the guard decides which requests need one.
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
	})
	optionalJWT := middleware.OptionalJWTAuthMiddleware(jwtService)
	engine.Use(func(c *gin.Context) {
		if isPublicRoute(c) {
			optionalJWT(c)
			return
		}
		jwtMiddleware(c)
	})

	if cfg.Telemetry.Enabled {
		// Re-enrich spans now that the signer is known.
		engine.Use(middleware.TracingAttributeInjector())
	}

	// Register API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(invoiceHandler, accountHandler, authHandler, systemHandler).
		Setup()

	// Root-level health endpoint for load balancers
	engine.GET("/health", systemHandler.Health)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// isPublicRoute reports whether the request may proceed without a signer
// token. All reads are public, as are the health endpoints and the token
// bootstrap itself.
func isPublicRoute(c *gin.Context) bool {
	path := c.Request.URL.Path
	if c.Request.Method == http.MethodGet {
		return true
	}
	if path == "/api/v1/auth/token" {
		return true
	}
	return strings.HasPrefix(path, "/api/v1/system/")
}
