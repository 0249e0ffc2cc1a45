package procurement

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the purchase order endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/receive", h.ReceiveItems)
		r.Post("/payments", h.RecordPayment)
	})
}
