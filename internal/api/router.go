package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/expertd/internal/api/handlers"
	mw "github.com/Harshitk-cp/expertd/internal/api/middleware"
	"github.com/Harshitk-cp/expertd/internal/buildconfig"
	"github.com/Harshitk-cp/expertd/internal/config"
	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/service"
	"github.com/Harshitk-cp/expertd/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Expirer      *service.ExpirerService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
	metrics      *mw.MetricsCollector
}

func NewApp(kbStore domain.KnowledgeBaseStore, sessionStore domain.SessionStore, logger *zap.Logger) *App {
	// Services
	kbSvc := service.NewKnowledgeBaseService(kbStore, logger)
	sessionSvc := service.NewSessionService(sessionStore, kbStore, logger)
	expirerSvc := service.NewExpirerService(sessionStore, config.SessionTTL(), logger)

	// Handlers
	kbHandler := handlers.NewKnowledgeBaseHandler(kbSvc)
	sessionHandler := handlers.NewSessionHandler(sessionSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Expirer:   expirerSvc,
		startTime: time.Now(),
	}
	app.metrics = mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(kbStore))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Get("/", kbHandler.List)
			r.Post("/", kbHandler.Import)
			r.Get("/{name}", kbHandler.Get)
			r.Delete("/{name}", kbHandler.Delete)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/answers", sessionHandler.Answer)
				r.Post("/undo", sessionHandler.Undo)
			})
		})
	})

	return app
}

func healthHandler(kbStore domain.KnowledgeBaseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		build := buildconfig.Current()

		if err := kbStore.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": err.Error(), "build": build})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "build": build})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"in_flight":      app.metrics.InFlight(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.KnowledgeBaseStore = (*store.KnowledgeBaseStore)(nil)
	_ domain.KnowledgeBaseStore = (*store.SQLiteKnowledgeBaseStore)(nil)
	_ domain.KnowledgeBaseStore = (*store.FileKnowledgeBaseStore)(nil)
	_ domain.SessionStore       = (*store.MemorySessionStore)(nil)
)
