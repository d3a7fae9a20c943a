package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"multiblock/internal/auth"
	"multiblock/internal/config"
	"multiblock/internal/handler"
	"multiblock/internal/handler/sse"
	"multiblock/internal/middleware"
	"multiblock/internal/observability"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/repository/postgres"
	"multiblock/internal/service"
	"multiblock/internal/service/invalidation"
	"multiblock/internal/service/prompt"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := config.ParseLogLevel(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	logOutput, closeLog, err := config.LogOutput(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger := config.NewLogger(level, logOutput)
	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	composerSettings, err := config.LoadComposerSettings(cfg.ComposerConfigPath)
	if err != nil {
		log.Fatalf("Failed to load composer settings: %v", err)
	}

	// Storage: Postgres when configured, otherwise a process-local store
	var repos *service.Repositories
	if cfg.SupabaseDBURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL, postgres.DefaultPoolOptions)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if cfg.ApplySchema {
			if err := postgres.ApplySchema(ctx, pool, tables); err != nil {
				log.Fatalf("Failed to apply schema: %v", err)
			}
			logger.Info("schema applied", "prefix", tables.Prefix)
		}

		repos = service.NewPostgresRepositories(pool, tables, logger)
		logger.Info("database connected")
	} else {
		repos = service.NewInMemRepositories(inmem.NewStore())
		logger.Warn("SUPABASE_DB_URL not set - using in-memory store")
	}

	provider, err := prompt.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}
	logger.Info("provider available", "name", provider.Name().String())

	metrics := observability.NewCollector("multiblock")

	services := service.SetupServices(
		ctx,
		repos,
		composerSettings,
		invalidation.BreakerSettings{
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		},
		provider,
		metrics,
		logger,
	)
	defer services.Hub.Close()

	logger.Info("services initialized")

	// Handlers only talk to services
	handlers := &handler.Handlers{
		Boards:        handler.NewBoardHandler(services.Blocks, logger),
		Connections:   handler.NewConnectionHandler(services.Graph, services.Authorizer, logger),
		Memory:        handler.NewMemoryHandler(services.Memory, logger),
		Context:       handler.NewContextHandler(services.Blocks, services.Composer, services.Assembler, services.Responder, logger),
		Subscriptions: handler.NewSubscriptionHandler(services.Hub, sse.NewConfig(cfg.SSEKeepAlive, cfg.SSERetry), logger),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	handler.RegisterRoutes(mux, handlers, cfg.Debug)
	if cfg.Debug {
		logger.Warn("Debug route registered: GET /debug/api/blocks/{id}/llm-request (LLM provider request preview)")
	}

	// Build middleware chain
	var h http.Handler = mux

	// Order: CORS → Recovery → Auth → Routes
	h = authMiddleware(cfg, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// authMiddleware picks Supabase JWT verification, or a fixed dev user when
// Supabase is not configured outside production.
func authMiddleware(cfg *config.Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.SupabaseJWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		return middleware.AuthMiddleware(jwtVerifier)
	}

	if cfg.Environment == "prod" || cfg.DevUserID == "" {
		log.Fatalf("SUPABASE_URL is required (or DEV_USER_ID outside prod)")
	}
	logger.Warn("DEV MODE: all requests authenticated as fixed user", "user_id", cfg.DevUserID)
	return middleware.DevAuthMiddleware(cfg.DevUserID)
}
