package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cwangg897/OneDayPiece/pkg/monitoring"
	"github.com/cwangg897/OneDayPiece/shared/utils"
	v1 "github.com/cwangg897/OneDayPiece/v1"
	v1handlers "github.com/cwangg897/OneDayPiece/v1/handlers"
	v1middleware "github.com/cwangg897/OneDayPiece/v1/middleware"
	v1services "github.com/cwangg897/OneDayPiece/v1/services"
)

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	slog.Info("Starting OneDayPiece backend initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := monitoring.Setup(ctx, monitoring.Config{ServiceName: "onedaypiece-backend"})
	if err != nil {
		slog.Error("Failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	dbConfig := v1.NewDatabaseConfig()
	gormDB, err := v1.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to GORM database", "error", err)
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	tokens := v1services.NewTokenProvider(jwtSecret)

	v1Handler := v1handlers.NewV1Handler(gormDB, tokens)

	// Create a mux for API routes
	apiMux := http.NewServeMux()
	jwtAuthMiddleware := v1middleware.NewJWTAuthMiddleware(tokens)
	v1Handler.SetupV1Routes(apiMux, jwtAuthMiddleware.AuthenticateJWT)

	// Apply middleware chain (CORS -> metrics) to the API mux ONLY
	corsMiddleware := v1middleware.NewCORSMiddleware()
	apiHandler := corsMiddleware(monitoring.HTTPMetricsMiddleware(apiMux))

	// Create the MAIN (top-level) mux for all incoming traffic
	topLevelMux := http.NewServeMux()
	topLevelMux.Handle("/api/v1/", apiHandler)
	topLevelMux.Handle("/metrics", monitoring.Handler())

	topLevelMux.Handle("/health", utils.PanicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type HealthStatus struct {
			Status   string `json:"status"`
			Service  string `json:"service"`
			Database string `json:"database"`
			Error    string `json:"error,omitempty"`
		}

		status := HealthStatus{Status: "healthy", Service: "onedaypiece-backend", Database: dbConfig.Database}

		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sqlDB, err := gormDB.DB()
		if err != nil {
			status.Status = "unhealthy"
			status.Error = fmt.Sprintf("failed to get sql.DB: %v", err)
		} else if err := sqlDB.PingContext(checkCtx); err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
		}

		statusCode := http.StatusOK
		if status.Status != "healthy" {
			statusCode = http.StatusServiceUnavailable
		}
		utils.RespondWithJSON(w, statusCode, status)
	})))

	// Background challenge progress sweeps
	sweepInterval, err := time.ParseDuration(utils.GetEnvOrDefault("PROGRESS_SWEEP_INTERVAL", "1m"))
	if err != nil {
		slog.Error("Invalid PROGRESS_SWEEP_INTERVAL", "error", err)
		os.Exit(1)
	}
	progressWorker := v1services.NewProgressWorker(gormDB, sweepInterval)
	go progressWorker.Start(ctx)

	port := utils.GetEnvOrDefault("PORT", "3000")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      topLevelMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("OneDayPiece backend starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start OneDayPiece backend", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down OneDayPiece backend...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Failed to shut down telemetry", "error", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}

	slog.Info("OneDayPiece backend exited")
}
