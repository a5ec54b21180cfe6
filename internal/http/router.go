package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/rideshare-auth/internal/http/handlers"
	"github.com/pribylovaa/rideshare-auth/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/auth"; если пустой — роуты регистрируются на корне.
	Verifier middleware.AccessVerifier

	FrontendURL string // origin для CORS; пустой — без CORS.
	RateLimit   int    // запросов с одного IP за RateWindow; 0 — без лимита.
	RateWindow  time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования, чтобы request_id попал в логгер
		middleware.SecureHeaders(),
		middleware.CORS(opts.FrontendURL),
		middleware.Logging(opts.Logger),
		middleware.RateLimit(opts.RateLimit, opts.RateWindow),
		middleware.Timeout(opts.Timeout),
	)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, opts.Verifier)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, opts.Verifier)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.AccessVerifier) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	r.Get("/status", h.Status)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthBearer(v))
		r.Get("/profile", h.Profile)
		r.Delete("/account", h.DeleteAccount)
	})
}
