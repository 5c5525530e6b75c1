// internal/app/features/koboforms/routes.go
package koboforms

import "github.com/go-chi/chi/v5"

// Routes mounts the form browser (typically under "/kobo").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/forms", h.ServeForms)
	r.Get("/forms/{uid}/count", h.ServeCount)
	return r
}
