package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/reflection-coach/internal/chat"
	httpmiddleware "github.com/wolfman30/reflection-coach/internal/http/middleware"
	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Reflection         *reflection.Handler
	Chat               *chat.Handler
	MetricsHandler     http.Handler
	StatsHandler       http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.Owner)

	// Operational endpoints
	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.StatsHandler != nil {
		r.Handle("/stats", cfg.StatsHandler)
	}

	r.Route("/api/chat", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.Reflection != nil {
			api.Post("/respond", cfg.Reflection.Respond)
			api.Post("/text", cfg.Reflection.Text)
		}
		if cfg.Chat != nil {
			api.Group(func(owned chi.Router) {
				owned.Use(httpmiddleware.RequireOwner)
				owned.Post("/store-chat-history", cfg.Chat.StoreHistory)
				owned.Get("/history", cfg.Chat.History)
				owned.Delete("/history", cfg.Chat.ClearHistory)
				owned.Post("/set-collected-information", cfg.Chat.SetCollectedInformation)
				owned.Get("/collected-information", cfg.Chat.CollectedInformation)
				owned.Get("/check-ins", cfg.Chat.CheckIns)
			})
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
