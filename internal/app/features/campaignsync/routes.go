// internal/app/features/campaignsync/routes.go
package campaignsync

import "github.com/go-chi/chi/v5"

// Routes returns the sync subrouter, mounted under /campaigns/{id}/sync.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleStart)
	r.Get("/", h.ServeStatus)
	r.Get("/history", h.ServeHistory)
	r.Post("/cancel", h.HandleCancel)
	return r
}
