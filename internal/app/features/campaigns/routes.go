// internal/app/features/campaigns/routes.go
package campaigns

import "github.com/go-chi/chi/v5"

// Routes mounts the campaign routes under the base path
// (typically "/campaigns" from bootstrap). Sync and report routes are
// mounted separately under "/campaigns/{id}".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.HandleEdit)
	return r
}
