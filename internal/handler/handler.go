// Package handler exposes the HTTP/JSON API surface and maps between wire
// DTOs and the domain packages.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tripmart/tripmart/internal/domain/order"
	"github.com/tripmart/tripmart/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the API routes, delegating business logic to the order
// service and product repository.
type Handler struct {
	products     product.Repository
	orderService *order.Service
	validate     *validator.Validate
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orderService *order.Service,
) *Handler {
	return &Handler{
		products:     products,
		orderService: orderService,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts all API routes on a fresh chi router. The authMiddleware is
// applied to the order routes only; the catalog is public.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Get("/user/{userId}", h.ListUserOrders)
	})

	return r
}
