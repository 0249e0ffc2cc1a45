package billing

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the billing endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/stats", h.Stats)
		r.Get("/next-number", h.NextNumber)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/status", h.UpdateStatus)
	})
	r.Post("/payments", h.RecordPayment)
}
