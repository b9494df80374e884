package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/magnetometer/internal/api"
	"github.com/RMahshie/magnetometer/internal/config"
	"github.com/RMahshie/magnetometer/internal/journal"
	"github.com/RMahshie/magnetometer/internal/lifecycle"
	"github.com/RMahshie/magnetometer/internal/repository/postgres"
	"github.com/RMahshie/magnetometer/internal/sensor"
	"github.com/RMahshie/magnetometer/internal/sensor/serialsource"
	"github.com/RMahshie/magnetometer/internal/sensor/simulated"
	"github.com/RMahshie/magnetometer/internal/sensor/unavailable"
	"github.com/RMahshie/magnetometer/pkg/models"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Server.Env != "dev" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Sensor source and session manager
	source, closeSource := newSource(cfg.Sensor)
	defer closeSource()

	notifier := lifecycle.NewBroadcaster()
	manager := sensor.NewManager(source, notifier)

	sigCtx, stopSignals := context.WithCancel(context.Background())
	defer stopSignals()
	lifecycle.NotifySignals(sigCtx, notifier)

	// Optional session journal
	var recorder *journal.Recorder
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		cancel()

		if err := postgres.MigrateUp(db, cfg.Database.MigrationsDir); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.Database.MigrationsDir).Msg("Failed to apply database migrations")
		}

		recorder = journal.NewRecorder(postgres.NewPostgresSessionRepository(db), 256)
		manager.OnSessionEvent(recorder.Handle)
		log.Info().Msg("Session journal enabled")
	}

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("Magnetometer API", "1.0.0")
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = "1.0.0"
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, manager, notifier, cfg.Server.SSEBuffer)

	// Serve OpenAPI spec at /api/openapi.json
	router.Get("/api/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		spec, err := humaAPI.OpenAPI().MarshalJSON()
		if err != nil {
			http.Error(w, "Failed to generate OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Write(spec)
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("source", cfg.Sensor.Source).Msg("Starting magnetometer API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stopping the manager ends any running session before the journal flushes
	manager.Close()
	if recorder != nil {
		recorder.Close()
	}

	log.Info().Msg("Server exited")
}

// newSource builds the configured sensor source and its release function
func newSource(cfg config.SensorConfig) (sensor.Source, func()) {
	switch cfg.Source {
	case "serial":
		src := serialsource.New(serialsource.Config{
			Path:     cfg.SerialPort,
			BaudRate: cfg.SerialBaud,
		}, serialsource.OpenSerial)
		return src, func() {
			if err := src.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close serial port")
			}
		}
	case "none":
		return unavailable.Source{}, func() {}
	default:
		simCfg := simulated.DefaultConfig()
		simCfg.ErrorRate = cfg.SimErrorRate
		return simulated.New(simCfg), func() {}
	}
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
