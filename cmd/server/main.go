package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moodwave/internal/api/handlers"
	"moodwave/internal/app"
	"moodwave/internal/auth"
	"moodwave/internal/config"
	"moodwave/internal/logger"
	"moodwave/internal/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.WithError(err).Warn("Could not read .env file")
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	identity, err := auth.NewIdentity(appConfig.Identity)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid identity configuration")
	}

	m := metrics.NewMetrics()

	logger.Log.Info("Initializing database...")
	database, err := app.OpenDatabase(appConfig, m)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}

	appCfg, err := app.NewConfig(database, appConfig, m)
	if err != nil {
		database.Close()
		logger.Log.WithError(err).Fatal("Failed to wire application")
	}
	defer appCfg.Close()

	moodHandler := handlers.NewMoodHandlers(appCfg)

	submitLimiter := handlers.NewRateLimiter(appConfig.Server.SubmitBurst, appConfig.Server.SubmitWindow)
	go submitLimiter.StartCleanup(5 * time.Minute)
	defer submitLimiter.Stop()

	// Create new ServeMux to use Go 1.22+ routing features
	mux := http.NewServeMux()

	// CORS preflight handler for OPTIONS requests
	corsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
	}

	public := func(path string, h http.HandlerFunc) http.HandlerFunc {
		return handlers.Instrument(m, path, enableCORS(h))
	}
	identified := func(path string, h http.HandlerFunc) http.HandlerFunc {
		return handlers.Instrument(m, path, enableCORS(identity.Middleware(h)))
	}

	mux.HandleFunc("GET /api/health", public("/api/health", moodHandler.HealthHandler))
	mux.HandleFunc("OPTIONS /api/health", corsHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/observations", identified("/api/observations", submitLimiter.Middleware(moodHandler.SubmitObservationHandler)))
	mux.HandleFunc("GET /api/observations", identified("/api/observations", moodHandler.GetObservationsHandler))
	mux.HandleFunc("OPTIONS /api/observations", corsHandler)
	mux.HandleFunc("GET /api/forecast", identified("/api/forecast", moodHandler.ForecastHandler))
	mux.HandleFunc("OPTIONS /api/forecast", corsHandler)

	port := appConfig.Server.Port
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.Log.Infof("Server starting on port %s", port)
	logger.Log.Infof("Health check: http://localhost:%s/api/health", port)
	logger.Log.Infof("Observations endpoint: http://localhost:%s/api/observations", port)
	logger.Log.Infof("Forecast endpoint: http://localhost:%s/api/forecast?days=N", port)
	logger.Log.Infof("Metrics endpoint: http://localhost:%s/metrics", port)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.WithError(err).Error("Server failed")
		return
	}
	logger.Log.Info("Server stopped")
}
