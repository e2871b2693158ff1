package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/auth/casbin"
	"slimwell/intake-backend/internal/checkout"
	"slimwell/intake-backend/internal/config"
	"slimwell/intake-backend/internal/cors"
	"slimwell/intake-backend/internal/coverage"
	"slimwell/intake-backend/internal/identity"
	"slimwell/intake-backend/internal/intake"
	"slimwell/intake-backend/internal/jwt"
	"slimwell/intake-backend/internal/metrics"
	"slimwell/intake-backend/internal/plan"
	"slimwell/intake-backend/internal/quiz"
	"slimwell/intake-backend/internal/ratelimit"
	internalresource "slimwell/intake-backend/internal/resource"
	"slimwell/intake-backend/internal/session"
	"slimwell/intake-backend/internal/submission"
	"slimwell/intake-backend/internal/trace"
	"slimwell/intake-backend/internal/user"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "intake-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrDatabaseURLRequired):
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			log.Fatal(EarlyApplicationFailed(title, message))
		case errors.Is(err, config.ErrStripeWebhookMissing):
			title := "Stripe webhook secret is required"
			message := "Please set STRIPE_WEBHOOK_SECRET, or unset STRIPE_SECRET_KEY to run without checkout."
			log.Fatal(EarlyApplicationFailed(title, message))
		default:
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	if cfg.Dev {
		logger.Warn("Running in development mode, make sure to disable it in production")
	}

	if cfg.Secret == config.DefaultSecret && !cfg.Debug {
		logger.Warn("Default secret detected in production environment, replace it with a secure random string")
		cfg.Secret = uuid.New().String()
	}

	if cfg.AdminToken == "" {
		logger.Warn("No admin token configured, operator routes are disabled")
	}

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionStore, pendingStore, err := initSharedStores(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()
	registry := metrics.New()
	catalog := quiz.MustDefaultCatalog()

	otpLimiter := ratelimit.NewKeyed(cfg.OTPSendPerMinute, cfg.OTPSendBurst)
	go otpLimiter.Cleanup(ctx, time.Minute)

	// ============================================
	// Service
	// ============================================

	coverageResolver, err := coverage.NewResolver(logger)
	if err != nil {
		logger.Fatal("Failed to load coverage rules", zap.Error(err))
	}

	gatewayLoader := internalresource.NewLoader(
		func(context.Context) (checkout.Gateway, error) {
			return checkout.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
		},
		func(checkout.Gateway) error { return nil },
	)

	identityClient := identity.NewClient(logger, cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout)
	jwtService := jwt.NewService(logger, cfg.Secret, cfg.SessionTTL)
	userService := user.NewService(logger, dbPool)
	identityService := identity.NewService(logger, identityClient, userService, sessionStore, pendingStore, jwtService, registry, otpLimiter, cfg.VerificationTTL)
	go identityService.Cleanup(ctx, time.Minute)
	submissionService := submission.NewService(logger, dbPool, catalog, identityService, coverageResolver, userService, registry)
	planService := plan.NewService(logger, dbPool)
	checkoutService := checkout.NewService(logger, dbPool, gatewayLoader, planService, sessionStore, registry)
	intakeService := intake.NewService(logger, catalog, sessionStore, submissionService, checkoutService, intake.NewServiceability(cfg.ServiceablePincode))

	// ============================================
	// Handler
	// ============================================

	identityHandler := identity.NewHandler(logger, validator, problemWriter, identityService)
	userHandler := user.NewHandler(logger, validator, problemWriter, userService)
	intakeHandler := intake.NewHandler(logger, validator, problemWriter, intakeService)
	submissionHandler := submission.NewHandler(logger, validator, problemWriter, submissionService)
	planHandler := plan.NewHandler(logger, problemWriter, planService)
	webhookHandler := checkout.NewWebhookHandler(logger, problemWriter, checkoutService)

	// ============================================
	// Middleware
	// ============================================

	// Middleware Initialization
	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	jwtMiddleware := jwt.NewMiddleware(logger, problemWriter, jwtService, sessionStore)

	// Basic Middleware (Tracing, Recovery and Metrics)
	basicMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicMiddleware = basicMiddleware.Append(traceMiddleware.TraceMiddleware)
	basicMiddleware = basicMiddleware.Append(registry.Middleware)

	// Session Middleware
	authMiddleware := basicMiddleware.Append(jwtMiddleware.AuthenticateMiddleware)
	optionalAuthMiddleware := basicMiddleware.Append(jwtMiddleware.OptionalMiddleware)

	casbinCfg := casbin.Config{
		ModelPath:  cfg.CasbinModelPath,
		PolicyPath: cfg.CasbinPolicyPath,
	}
	enforcer, err := casbin.NewEnforcer(casbinCfg)
	if err != nil {
		logger.Fatal("Failed to initialize casbin enforcer", zap.Error(err))
	}

	// Operator Middleware
	casbinMiddleware := casbin.NewMiddleware(logger, problemWriter, enforcer, cfg.AdminToken)
	operatorMiddleware := basicMiddleware.Append(casbinMiddleware.Middleware)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicMiddleware.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))
	mux.Handle("GET /metrics", operatorMiddleware.HandlerFunc(registry.Handler().ServeHTTP))

	// ============================================
	// Registration and identity routes
	// ============================================

	mux.Handle("POST /api/pre-register", basicMiddleware.HandlerFunc(userHandler.PreRegister))
	mux.Handle("POST /api/check-registration", basicMiddleware.HandlerFunc(userHandler.CheckRegistration))
	mux.Handle("GET /api/user/me", optionalAuthMiddleware.HandlerFunc(userHandler.GetMe))

	// OTP
	// ----------------------
	mux.Handle("POST /api/otp/challenge", basicMiddleware.HandlerFunc(identityHandler.AcquireChallenge))
	mux.Handle("DELETE /api/otp/challenge/{containerId}", basicMiddleware.HandlerFunc(identityHandler.ReleaseChallenge))
	mux.Handle("POST /api/otp/send", basicMiddleware.HandlerFunc(identityHandler.SendCode))
	mux.Handle("POST /api/otp/confirm", basicMiddleware.HandlerFunc(identityHandler.Confirm))
	mux.Handle("POST /api/verify-identity", basicMiddleware.HandlerFunc(identityHandler.VerifyIdentity))

	// ============================================
	// Quiz routes
	// ============================================

	mux.Handle("GET /api/quiz/steps", basicMiddleware.HandlerFunc(intakeHandler.GetSteps))

	// Session wizard
	// ----------------------
	mux.Handle("GET /api/quiz/session", authMiddleware.HandlerFunc(intakeHandler.GetSession))
	mux.Handle("PUT /api/quiz/session/answers", authMiddleware.HandlerFunc(intakeHandler.PutAnswer))
	mux.Handle("PUT /api/quiz/session/context", authMiddleware.HandlerFunc(intakeHandler.PutContext))
	mux.Handle("POST /api/quiz/session/next", authMiddleware.HandlerFunc(intakeHandler.Next))
	mux.Handle("POST /api/quiz/session/back", authMiddleware.HandlerFunc(intakeHandler.Back))
	mux.Handle("POST /api/quiz/session/restart", authMiddleware.HandlerFunc(intakeHandler.Restart))
	mux.Handle("POST /api/quiz/session/submit", authMiddleware.HandlerFunc(intakeHandler.Submit))
	mux.Handle("GET /api/quiz/session/result", authMiddleware.HandlerFunc(intakeHandler.GetResult))

	// Raw submission
	// ----------------------
	mux.Handle("POST /api/quiz/submit", basicMiddleware.HandlerFunc(submissionHandler.Submit))
	mux.Handle("GET /api/quiz/submissions/{id}/export", operatorMiddleware.HandlerFunc(submissionHandler.Export))

	// ============================================
	// Plan and checkout routes
	// ============================================

	mux.Handle("GET /api/plans", basicMiddleware.HandlerFunc(planHandler.List))
	mux.Handle("POST /api/checkout", authMiddleware.HandlerFunc(intakeHandler.OpenCheckout))
	mux.Handle("POST /api/checkout/webhook", basicMiddleware.HandlerFunc(webhookHandler.Webhook))

	// End of API routes
	// ============================================

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           entrypoint,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := checkoutService.Close(); err != nil {
		logger.Error("Failed to release payment gateway", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

// initSharedStores uses Redis when configured so that several instances can
// share sessions, locks and pending verifications, and falls back to process
// memory otherwise.
func initSharedStores(ctx context.Context, logger *zap.Logger, cfg config.Config) (session.Store, identity.PendingStore, error) {
	if cfg.RedisURL == "" {
		logger.Warn("No redis_url configured, keeping intake sessions in memory")
		return session.NewMemoryStore(cfg.SessionTTL), identity.NewMemoryPendingStore(), nil
	}

	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(logger, client, cfg.SessionTTL), identity.NewRedisPendingStore(logger, client), nil
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("slimwell")
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
