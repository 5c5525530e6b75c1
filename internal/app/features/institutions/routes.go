// internal/app/features/institutions/routes.go
package institutions

import "github.com/go-chi/chi/v5"

// Routes mounts the institution routes under the base path
// (typically "/institutions" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/import", h.HandleImport)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
