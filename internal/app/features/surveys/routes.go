// internal/app/features/surveys/routes.go
package surveys

import "github.com/go-chi/chi/v5"

// Routes mounts the survey routes under the base path
// (typically "/surveys" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreatePlanned)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}/status", h.HandleStatus)
	r.Put("/{id}/indicators", h.HandleIndicators)
	return r
}
