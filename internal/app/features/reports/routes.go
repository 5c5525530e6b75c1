// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes returns the reports subrouter, mounted under
// /campaigns/{id}/reports.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/summary", h.ServeSummary)
	r.Get("/readiness", h.ServeReadiness)
	r.Get("/regions", h.ServeRegions)
	r.Get("/regions.csv", h.ServeRegionsCSV)
	r.Get("/daily", h.ServeDaily)
	r.Post("/recount", h.HandleRecount)
	return r
}
