package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/Yoonyonggeun/mostarle-kr/internal/auth"
	"github.com/Yoonyonggeun/mostarle-kr/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/products/slug/{slug}", h.GetProductBySlug)
		r.Get("/banners", h.ListBanners)

		r.Post("/products", h.CreateProduct)
		r.Post("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Post("/products/{id}/sold-out", h.ToggleSoldOut)

		r.Post("/banners", h.CreateBanner)
		r.Post("/banners/{id}", h.UpdateBanner)
		r.Delete("/banners/{id}", h.DeleteBanner)
	})

	return r
}
