package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nordtolk/nordtolk-backend/api/controllers"
	"github.com/nordtolk/nordtolk-backend/api/middleware"
	"github.com/nordtolk/nordtolk-backend/internal/auth"
	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Auth          *auth.Service
	Bookings      *bookings.Service
	Notifications *notifications.Repository
	Readiness     map[string]controllers.Pinger
}

// NewRouter assembles the API route tree.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(params.Auth, logg))
		r.Post("/register", controllers.AuthRegister(params.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.CreateBooking(params.Bookings, logg))
			r.Get("/", controllers.ListBookings(params.Bookings, logg))
			r.With(middleware.RequireRole(enums.UserRoleInterpreter, logg)).
				Get("/potential", controllers.PotentialBookings(params.Bookings, logg))

			r.Route("/{bookingId}", func(r chi.Router) {
				r.Get("/", controllers.GetBooking(params.Bookings, logg))
				r.Patch("/", controllers.UpdateBooking(params.Bookings, logg))
				r.Get("/history", controllers.BookingHistory(params.Bookings, logg))
				r.Post("/accept", controllers.AcceptBooking(params.Bookings, logg))
				r.Post("/cancel", controllers.CancelBooking(params.Bookings, logg))
				r.Post("/start", controllers.StartSession(params.Bookings, logg))
				r.Post("/end", controllers.EndSession(params.Bookings, logg))
				r.Post("/not-call", controllers.CustomerNotCall(params.Bookings, logg))
				r.With(middleware.RequireOperator(logg)).
					Post("/reopen", controllers.ReopenBooking(params.Bookings, logg))
			})
		})

		r.Get("/notifications", controllers.ListNotifications(params.Notifications, logg))
	})

	return r
}
