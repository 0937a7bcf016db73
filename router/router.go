package router

import (
	"go-trip-api/handler"
	"go-trip-api/metrics"
	"go-trip-api/ratelimit"
	"go-trip-api/service"
	"net/http"

	_ "go-trip-api/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Deps holds everything the router wires into handlers and middleware.
// Metrics, Gatherer, APILimiter and DB are optional.
type Deps struct {
	Auth      *service.AuthService
	Trips     *service.TripService
	Itinerary *service.ItineraryService

	Limiter    ratelimit.Limiter
	Policies   ratelimit.AuthPolicies
	APILimiter *ratelimit.APILimiter

	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	DB       handler.Pinger

	Cookie     handler.CookieConfig
	CORSOrigin string
	TrustProxy bool
}

func NewRouter(deps Deps) http.Handler {
	var (
		httpRec handler.HTTPRecorder
		rlRec   handler.RateLimitRecorder
	)
	if deps.Metrics != nil {
		httpRec = deps.Metrics
		rlRec = deps.Metrics
	}

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookie)
	tripHandler := handler.NewTripHandler(deps.Trips)
	itineraryHandler := handler.NewItineraryHandler(deps.Itinerary)

	requireAuth := handler.AuthMiddleware(deps.Auth)
	limit := func(p ratelimit.Policy) func(http.Handler) http.Handler {
		return handler.RateLimitByAddress(deps.Limiter, p, rlRec)
	}
	h := handler.ErrorHandlingMiddleware

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(handler.RequestLogger(httpRec))
	r.Use(handler.RecoveryMiddleware)
	r.Use(handler.SecurityHeadersMiddleware)
	r.Use(handler.CORSMiddleware(deps.CORSOrigin))

	r.Get("/health", handler.HealthCheck)
	r.Get("/ready", handler.ReadinessCheck(deps.DB))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(deps.Policies.Register)).Post("/register", h(authHandler.Register))
			r.With(limit(deps.Policies.Login)).Post("/login", h(authHandler.Login))
			r.With(limit(deps.Policies.Session)).Post("/refresh", h(authHandler.Refresh))
			r.With(limit(deps.Policies.Session), requireAuth).Post("/logout", h(authHandler.Logout))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout-all", h(authHandler.LogoutAll))
				r.Get("/me", h(authHandler.Me))
			})
		})

		r.Route("/trips", func(r chi.Router) {
			r.Use(requireAuth)
			if deps.APILimiter != nil {
				r.Use(handler.APIRateLimit(deps.APILimiter, rlRec))
			}

			r.Get("/", h(tripHandler.ListTrips))
			r.Post("/", h(tripHandler.CreateTrip))

			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", h(tripHandler.GetTrip))
				r.Patch("/", h(tripHandler.UpdateTrip))
				r.Delete("/", h(tripHandler.DeleteTrip))

				r.Route("/flights", func(r chi.Router) {
					r.Get("/", h(itineraryHandler.ListFlights))
					r.Post("/", h(itineraryHandler.CreateFlight))
					r.Get("/{flightID}", h(itineraryHandler.GetFlight))
					r.Patch("/{flightID}", h(itineraryHandler.UpdateFlight))
					r.Delete("/{flightID}", h(itineraryHandler.DeleteFlight))
				})
				r.Route("/stays", func(r chi.Router) {
					r.Get("/", h(itineraryHandler.ListStays))
					r.Post("/", h(itineraryHandler.CreateStay))
					r.Get("/{stayID}", h(itineraryHandler.GetStay))
					r.Patch("/{stayID}", h(itineraryHandler.UpdateStay))
					r.Delete("/{stayID}", h(itineraryHandler.DeleteStay))
				})
				r.Route("/activities", func(r chi.Router) {
					r.Get("/", h(itineraryHandler.ListActivities))
					r.Post("/", h(itineraryHandler.CreateActivity))
					r.Get("/{activityID}", h(itineraryHandler.GetActivity))
					r.Patch("/{activityID}", h(itineraryHandler.UpdateActivity))
					r.Delete("/{activityID}", h(itineraryHandler.DeleteActivity))
				})
			})
		})
	})

	return r
}
