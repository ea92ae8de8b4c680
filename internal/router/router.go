package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cattube/internal/config"
	"cattube/internal/handlers"
	"cattube/internal/metrics"
	"cattube/internal/middleware"
	"cattube/internal/web"
	"cattube/internal/websocket"
)

// Requests per minute.
const (
	globalLimit = 600
	pollLimit   = 120
	authLimit   = 10
)

func New(
	cfg *config.Config,
	m *metrics.Metrics,
	sessions *middleware.Sessions,
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	videoHandler *handlers.VideoHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()

	hosts := cfg.AllowedHosts
	if !cfg.IsProduction() {
		hosts = append(append([]string{}, hosts...), "localhost", "127.0.0.1", "[::1]")
	}

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security)
	r.Use(middleware.AllowedHosts(hosts))

	// Transloadit posts here without a session or origin. It sits outside
	// every limiter so browser traffic can never turn a callback into a 429.
	r.Post("/notification", notificationHandler.Receive)

	// The watch page polls this; each browser gets its own budget.
	r.With(httprate.LimitByIP(pollLimit, time.Minute), middleware.NoCache).Get("/videos/{id}", videoHandler.Detail)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitAll(globalLimit, time.Minute))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

		// ──── Pages ────
		r.Group(func(r chi.Router) {
			r.Use(sessions.Load)
			r.Use(middleware.TrustedOrigins(cfg.TrustedOrigins()))

			r.Get("/", videoHandler.List)
			r.Get("/watch/{id}", videoHandler.Watch)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/login", authHandler.LoginForm)
				r.With(httprate.LimitByIP(authLimit, time.Minute)).Post("/login", authHandler.Login)
				r.Post("/logout", authHandler.Logout)
			})

			r.Group(func(r chi.Router) {
				r.Use(sessions.RequireLogin)
				r.Get("/upload", videoHandler.UploadForm)
				r.Post("/upload", videoHandler.Upload)
				r.Post("/delete-all", videoHandler.DeleteAll)
			})
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.With(httprate.LimitByIP(authLimit, time.Minute)).Post("/auth/token", authHandler.Token)
			r.With(jwtAuth.Middleware).Get("/videos", videoHandler.Mine)

			// ──── WebSocket ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
