package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/mealboard-admin/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware админ-шлюза.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/login", h.Login)
		r.Post("/session/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/dashboard", h.Dashboard)

			r.Get("/users", h.GetUsers)

			r.Get("/vendors", h.GetVendors)
			r.Post("/vendors", h.SubmitVendor)
			r.Put("/vendors/{id}", h.UpdateVendor)
			r.Delete("/vendors/{id}", h.DeleteVendor)
			r.Post("/vendors/{id}/toggle", h.ToggleVendor)

			r.Get("/orders", h.GetOrders)
			r.Post("/orders/{id}/accept", h.AcceptOrder)
			r.Post("/orders/{id}/reject", h.RejectOrder)

			r.Get("/subscribers", h.GetSubscribers)
			r.Get("/subscribers/{id}", h.GetSubscriberDetail)

			r.Get("/payments", h.GetPayments)
			r.Post("/payments/{id}/status", h.SetPaymentStatus)

			r.Get("/enrich/ifsc/{code}", h.LookupIFSC)
			r.Get("/enrich/gstin/{id}", h.LookupGSTIN)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
