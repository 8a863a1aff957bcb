package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenCrew/crewflow/internal/auth"
	"github.com/OpenCrew/crewflow/internal/config"
	"github.com/OpenCrew/crewflow/internal/database"
	"github.com/OpenCrew/crewflow/internal/metrics"
	"github.com/OpenCrew/crewflow/internal/middleware"
	"github.com/OpenCrew/crewflow/internal/notification"
	"github.com/OpenCrew/crewflow/internal/progress"
	"github.com/OpenCrew/crewflow/internal/uploads"
	"github.com/OpenCrew/crewflow/internal/workflow"
	"github.com/OpenCrew/crewflow/internal/workflow/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"redis_enabled", cfg.Redis.Enabled,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Perform health check
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// Apply schema migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()

	// Completion event bus is optional; without Redis the engine still runs,
	// it just publishes nothing.
	var notifier service.CompletionNotifier
	if cfg.Redis.Enabled {
		redisClient, err := notification.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
		notifier = notification.NewRedisEventBus(redisClient)
		slog.Info("completion event bus connected", "address", cfg.Redis.Address)
	} else {
		slog.Warn("redis disabled, completion events will not be published")
	}

	// Initialize workflow manager
	tracker := progress.NewTracker(&cfg.Reminders)
	wm := workflow.NewManager(db, notifier, tracker)

	// Initialize auth
	authService := auth.NewAuthService(db, &cfg.Auth)
	authHandler := auth.NewHTTPHandler(authService)

	// Initialize proof storage
	storageDriver, err := uploads.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	uploadService := uploads.NewUploadService(storageDriver, db)
	uploadHandler := uploads.NewHTTPHandler(uploadService)

	// Set up HTTP routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", wm.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/auth/magic-link", authHandler.RequestLink)
	mux.HandleFunc("POST /api/auth/verify", authHandler.Verify)

	// Workflow authoring and assignment are admin-only.
	mux.Handle("POST /api/workflows", auth.RequireAdmin(http.HandlerFunc(wm.HandleCreateWorkflow)))
	mux.HandleFunc("GET /api/workflows", wm.HandleGetWorkflows)
	mux.HandleFunc("GET /api/workflows/{slug}", wm.HandleGetWorkflow)
	mux.Handle("PATCH /api/workflows/{workflowID}", auth.RequireAdmin(http.HandlerFunc(wm.HandleUpdateWorkflow)))
	mux.Handle("GET /api/workflows/{workflowID}/statistics", auth.RequireAdmin(http.HandlerFunc(wm.HandleGetStatistics)))
	mux.Handle("POST /api/workflows/{workflowID}/phases", auth.RequireAdmin(http.HandlerFunc(wm.HandleCreatePhase)))
	mux.Handle("POST /api/phases/{phaseID}/items", auth.RequireAdmin(http.HandlerFunc(wm.HandleCreateItem)))

	mux.Handle("POST /api/instances", auth.RequireAdmin(http.HandlerFunc(wm.HandleAssignWorkflow)))
	mux.Handle("GET /api/instances/{instanceID}", auth.RequireAuth(http.HandlerFunc(wm.HandleGetInstance)))
	mux.Handle("GET /api/instances/{instanceID}/progress", auth.RequireAuth(http.HandlerFunc(wm.HandleGetProgress)))
	mux.Handle("POST /api/instances/{instanceID}/phases/{phaseID}/start", auth.RequireAuth(http.HandlerFunc(wm.HandleStartPhase)))
	mux.Handle("POST /api/instances/{instanceID}/items/{itemID}/complete", auth.RequireAuth(http.HandlerFunc(wm.HandleCompleteItem)))
	mux.Handle("POST /api/instances/{instanceID}/phases/{phaseID}/quiz", auth.RequireAuth(http.HandlerFunc(wm.HandleSubmitQuiz)))

	mux.Handle("POST /api/uploads", auth.RequireAuth(http.HandlerFunc(uploadHandler.Upload)))
	mux.Handle("GET /api/uploads/", auth.RequireAuth(http.HandlerFunc(uploadHandler.Download)))

	// Set up graceful shutdown
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with auth, metrics and CORS middleware
	var handler http.Handler = mux
	handler = auth.Middleware(authService)(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = middleware.CORS(&cfg.CORS)(handler)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown of HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
