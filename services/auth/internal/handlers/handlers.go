package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/middleware"
	"github.com/diagnosis/luxsuv-reservations/pkg/ratelimit"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/service"
)

type Handlers struct {
	users    service.UsersService
	auth     service.AuthService
	sessions *auth.Sessions
	cookies  auth.CookieOptions
}

func New(
	users service.UsersService,
	authService service.AuthService,
	sessions *auth.Sessions,
	cookies auth.CookieOptions,
) *Handlers {
	return &Handlers{
		users:    users,
		auth:     authService,
		sessions: sessions,
		cookies:  cookies,
	}
}

// Routes mounts the service endpoints. limiter may be nil.
func (h *Handlers) Routes(r chi.Router, limiter ratelimit.Limiter) {
	requireSession := middleware.Authenticate(h.sessions)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Register)
		r.With(requireSession).Get("/", h.ListUsers)
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(limiter)).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(requireSession).Get("/me", h.Me)
	})
}
