package expenses

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the expense endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stats", h.Stats)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/categories", h.ListCategories)
		r.Post("/categories", h.CreateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
