package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medicare-hms/portal-booking/internal/http/handlers"
	httpmiddleware "github.com/medicare-hms/portal-booking/internal/http/middleware"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Sessions           *handlers.BookingSessions
	MetricsHandler     http.Handler
	PatientJWTSecret   string
	CORSAllowedOrigins []string

	// Rate limit for session creation; zero disables it.
	SessionRatePerSec float64
	SessionBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient-facing booking workflow
	r.Route("/booking/sessions", func(booking chi.Router) {
		booking.Use(httpmiddleware.PatientJWT(cfg.PatientJWTSecret))

		create := booking.With()
		if cfg.SessionRatePerSec > 0 {
			create = booking.With(httpmiddleware.RateLimit(cfg.SessionRatePerSec, cfg.SessionBurst))
		}
		create.Post("/", cfg.Sessions.HandleCreate)

		booking.Route("/{sessionID}", func(session chi.Router) {
			session.Get("/", cfg.Sessions.HandleSnapshot)
			session.Delete("/", cfg.Sessions.HandleDelete)
			session.Get("/events", cfg.Sessions.HandleEvents)
			session.Put("/filters", cfg.Sessions.HandleSetFilters)
			session.Post("/doctor", cfg.Sessions.HandleSelectDoctor)
			session.Post("/date", cfg.Sessions.HandleSelectDate)
			session.Post("/slots/retry", cfg.Sessions.HandleRetrySlots)
			session.Post("/slot", cfg.Sessions.HandleSelectSlot)
			session.Put("/reason", cfg.Sessions.HandleSetReason)
			session.Post("/confirm", cfg.Sessions.HandleConfirm)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
