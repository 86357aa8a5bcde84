package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"videotube/internal/api"
	"videotube/internal/auth"
	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/middleware"
	"videotube/internal/services"
	"videotube/internal/utils"
)

const (
	authRateWindow  = time.Minute
	rateLimiterKeys = 10000
)

// Server holds all server dependencies
type Server struct {
	Config         *config.Config
	Store          database.DBAdapter
	Sessions       *services.SessionService
	Profiles       *services.ProfileService
	Tokens         *auth.TokenService
	Metrics        *utils.MetricsCollector
	Log            *slog.Logger
	RequestTimeout time.Duration

	authLimiter *middleware.RateLimiter
}

// NewServer creates a new Server instance with the given components
func NewServer(
	cfg *config.Config,
	store database.DBAdapter,
	sessions *services.SessionService,
	profiles *services.ProfileService,
	tokens *auth.TokenService,
	metrics *utils.MetricsCollector,
	log *slog.Logger,
) *Server {
	return &Server{
		Config:         cfg,
		Store:          store,
		Sessions:       sessions,
		Profiles:       profiles,
		Tokens:         tokens,
		Metrics:        metrics,
		Log:            log,
		RequestTimeout: 5 * time.Second, // Bounds the health check ping
		authLimiter:    middleware.NewRateLimiter(authRateWindow, cfg.Server.AuthRateLimit, rateLimiterKeys),
	}
}

// Routes builds the HTTP router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if s.Config.Server.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestMetrics(s.Metrics, s.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.Config.AllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, s.Log, utils.NewAppError(utils.ErrNotFound, "Route not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed",
		})
	})

	r.Get("/health", s.HandleHealth())
	if s.Config.Server.MetricsEnabled && s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	requireAuth := middleware.AuthMiddleware(s.Tokens, s.Store, s.Log)
	limitAuth := middleware.RateLimitMiddleware(s.authLimiter, middleware.GetIPKey, s.Log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limitAuth).Post("/register", s.HandleRegister())
			r.With(limitAuth).Post("/login", s.HandleLogin())
			r.Post("/refresh-token", s.HandleRefreshToken())

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", s.HandleLogout())
				r.Post("/change-password", s.HandleChangePassword())
				r.Get("/currentUser", s.HandleCurrentUser())
				r.Patch("/update-account", s.HandleUpdateAccount())
				r.Patch("/update-Avatar", s.HandleUpdateAvatar())
				r.Patch("/update-coverImage", s.HandleUpdateCoverImage())
				r.Get("/c/{username}", s.HandleChannelProfile())
				r.Get("/watch-history", s.HandleWatchHistory())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/subscriptions/c/{channelId}", s.HandleToggleSubscription())
			r.Post("/watch-history/{videoId}", s.HandleRecordWatch())
		})
	})

	return r
}
