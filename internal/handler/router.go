package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/fastprintguys/printbook-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса печати книг.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.Catalog)
			r.Get("/bindings", h.EligibleBindings)
			r.Post("/quote", h.Quote)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/books", func(r chi.Router) {
				r.Post("/upload", h.UploadBook)
				r.Get("/mine", h.UserBooks)
				r.Get("/{id}", h.BookDetail)
				r.Put("/{id}", h.UpdateBook)
				r.Patch("/{id}", h.UpdateBook)
				r.Delete("/{id}", h.DeleteBook)
			})

			r.Get("/admin/books", h.AdminBooks)

			r.Route("/payment", func(r chi.Router) {
				r.Post("/create-checkout-session", h.CreateCheckoutSession)
				r.Post("/paypal/create-payment", h.CreatePayPalPayment)
				r.Post("/paypal/execute-payment", h.ExecutePayPalPayment)
				r.Get("/paypal/payment-details/{paymentID}", h.PayPalPaymentDetails)
			})
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
