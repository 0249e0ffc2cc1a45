package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tilekart/tilekart/internal/auth"
	"github.com/tilekart/tilekart/internal/billing"
	"github.com/tilekart/tilekart/internal/delivery"
	"github.com/tilekart/tilekart/internal/expenses"
	"github.com/tilekart/tilekart/internal/masterdata/customers"
	"github.com/tilekart/tilekart/internal/masterdata/products"
	"github.com/tilekart/tilekart/internal/masterdata/suppliers"
	"github.com/tilekart/tilekart/internal/observability"
	"github.com/tilekart/tilekart/internal/platform/httpx"
	"github.com/tilekart/tilekart/internal/procurement"
	"github.com/tilekart/tilekart/internal/security"
)

// RouterParams aggregates the handlers and platform pieces the router mounts.
type RouterParams struct {
	Middleware MiddlewareConfig
	Metrics    *observability.Metrics

	Auth        *auth.Handler
	Billing     *billing.Handler
	Procurement *procurement.Handler
	Delivery    *delivery.Handler
	Expenses    *expenses.Handler
	Customers   *customers.Handler
	Suppliers   *suppliers.Handler
	Products    *products.Handler
	Security    *security.Handler
}

// NewRouter assembles the HTTP surface: public auth endpoints, health and
// metrics, and the authenticated /api/v1 tree.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(p.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	p.Auth.MountPublicRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireUser)

		p.Auth.MountRoutes(r)
		p.Billing.MountRoutes(r)
		p.Procurement.MountRoutes(r)
		p.Delivery.MountRoutes(r)
		p.Expenses.MountRoutes(r)
		p.Customers.MountRoutes(r)
		p.Suppliers.MountRoutes(r)
		p.Products.MountRoutes(r)
		p.Security.MountRoutes(r)
	})

	return r
}
