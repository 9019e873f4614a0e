package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the page routes on a chi router.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Index)

	// /search only exists to accept the search form; GET is a 405.
	r.Post("/search", h.SearchSubmit)

	r.Route("/snippet", func(r chi.Router) {
		r.Get("/", h.Results)
		r.Post("/render", h.Preview)

		r.Group(func(r chi.Router) {
			r.Use(h.requireLogin)
			r.Get("/new", h.NewSnippet)
			r.Post("/new", h.NewSnippet)
		})

		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", h.GetSnippet)
			r.Group(func(r chi.Router) {
				r.Use(h.requireLogin)
				r.Get("/edit", h.EditSnippet)
				r.Post("/edit", h.EditSnippet)
				r.Get("/delete", h.DeleteSnippet)
				r.Post("/delete", h.DeleteSnippet)
			})
		})
	})

	if h.users != nil {
		r.Get("/login", h.Login)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Route("/user", func(r chi.Router) {
			r.Get("/new", h.NewUser)
			r.Post("/new", h.NewUser)
			r.Get("/{id:[0-9]+}", h.GetUser)
		})
	}

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	r.NotFound(h.notFound)

	return r
}
