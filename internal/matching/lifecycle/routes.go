package lifecycle

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/apply", h.Apply)
	r.Post("/cancel", h.Cancel)
}
