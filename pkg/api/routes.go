package api

import "github.com/go-chi/chi/v5"

func RegisterCapsuleRoutes(r chi.Router, h *CapsuleHandler) {
	r.Route("/api/capsules", func(r chi.Router) {
		r.Post("/", h.CreateCapsule)
		r.Get("/", h.ListCapsules)
		r.Post("/trigger-send", h.TriggerSend)
	})
}
