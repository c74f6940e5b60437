package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkrasnov/reminders/internal/config"
	"github.com/dkrasnov/reminders/internal/database"
	"github.com/dkrasnov/reminders/internal/handlers"
	"github.com/dkrasnov/reminders/internal/logger"
	"github.com/dkrasnov/reminders/internal/middleware"
	"github.com/dkrasnov/reminders/internal/state"
	"github.com/dkrasnov/reminders/internal/telemetry"
	"github.com/dkrasnov/reminders/internal/usecase"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "reminders-api"

// version is set at build time via -ldflags
var version = "dev"

func main() {
	var debugFlag bool

	rootCmd := &cobra.Command{
		Use:     "reminders-server",
		Short:   "Reminder state and query service",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(debugFlag)
		},
	}
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(debugFlag bool) error {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("database_path", cfg.DatabasePath),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry, optional.
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.Init(context.Background(), serviceName, version, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		zapLogger.Fatal("failed_to_open_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database", zap.Error(err))
		}
	}()
	zapLogger.Info("database_opened")

	// Repositories. List mutations can refile reminders, so list writes
	// also refresh the reminder snapshot stream.
	reminderRepo := database.NewReminderRepository(db)
	reminderRepo.SetLogger(zapLogger)
	listRepo := database.NewListRepository(db)
	listRepo.SetLogger(zapLogger)
	listRepo.SetReminderChangeHandler(reminderRepo.NotifyChanged)

	reminders := usecase.NewReminders(reminderRepo, zapLogger)
	lists := usecase.NewLists(listRepo, zapLogger)

	core := state.New(reminderRepo, listRepo, reminders, lists, zapLogger)
	coreCtx, coreCancel := context.WithCancel(context.Background())
	defer coreCancel()
	if err := core.Start(coreCtx); err != nil {
		zapLogger.Fatal("failed_to_start_state_core", zap.Error(err))
	}

	reminderHandler := handlers.NewReminderHandler(core, reminders)
	listHandler := handlers.NewListHandler(lists)
	healthChecker := handlers.NewHealthChecker(db)

	r := mux.NewRouter()

	// Middleware, outermost first.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsMW := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	})
	r.Use(corsMW.Handler)

	r.Use(middleware.MaxRequestSize(cfg.MaxRequestBytes))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout, "/api/v1/reminders/watch"))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes, no rate limiting for probes.
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitMW)

	reminderHandler.RegisterRoutes(apiRouter.PathPrefix("/reminders").Subrouter())
	listHandler.RegisterRoutes(apiRouter.PathPrefix("/lists").Subrouter())

	// Preflight fallback; the CORS middleware has already set headers.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   0, // SSE watch connections stay open indefinitely
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	coreCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
	return nil
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}
