package server

import (
	"net/http"

	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/api/handlers"
	"github.com/cloo-solutions/supportbot/internal/api/middleware"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes int64 = 64 * 1024

type RouterConfig struct {
	Logger       *charmlog.Logger
	Metrics      *metrics.Metrics
	ChatHandler  *handlers.ChatHandler
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(chimw.RequestSize(maxBodyBytes))

	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.Health)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Post("/chat", cfg.ChatHandler.Chat)

	return r
}
