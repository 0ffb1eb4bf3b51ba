package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router with the global middleware stack.
func NewRouter(h *RosterHandler, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS(allowedOrigins))

	r.Get("/health", HealthCheck)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", h.ListTemplates)
		r.Get("/{name}", h.GetTemplate)
		r.Get("/{name}/edit", h.EditTemplate)
		r.Put("/{name}", h.SaveTemplate)
		r.Delete("/{name}", h.DeleteTemplate)
	})

	r.Route("/contents", func(r chi.Router) {
		r.Post("/", h.CreateContent)
		r.Get("/", h.ListContents)
		r.Route("/{ref}", func(r chi.Router) {
			r.Get("/", h.GetContent)
			r.Delete("/", h.DeleteContent)
			r.Post("/assign", h.Assign)
			r.Post("/register", h.Register)
			r.Post("/unassign", h.Unassign)
			r.Post("/kick", h.Kick)
			r.Post("/signups", h.Join)
			r.Delete("/signups/{userID}", h.Cancel)
			r.Get("/roles", h.RoleChoices)
			r.Get("/players", h.PlayerChoices)
			r.Get("/display", h.Display)
			r.Post("/refresh", h.Refresh)
		})
	})

	r.Route("/messages/{externalRef}", func(r chi.Router) {
		r.Post("/signups", h.JoinMessage)
		r.Delete("/signups/{userID}", h.CancelMessage)
	})

	return r
}
