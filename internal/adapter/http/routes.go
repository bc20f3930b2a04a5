package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Validations
		r.Post("/validations", h.Validate)
		r.Get("/validations", h.ListValidationResults)
		r.Get("/validations/{id}", h.GetValidationResult)

		// Review queue
		r.Post("/reviews", h.EnqueueReview)
		r.Get("/reviews", h.ListQueueEntries)
		r.Get("/reviews/stats", h.QueueStats)
		r.Post("/reviews/claim", h.ClaimReview)
		r.Get("/reviews/{id}", h.GetQueueEntry)
		r.Post("/reviews/{id}/release", h.ReleaseReview)
		r.Post("/reviews/{id}/complete", h.CompleteReview)

		// Out-of-scope statistics
		r.Post("/oos/calibrate", h.OOSCalibrate)
		r.Post("/oos/optimize", h.OOSOptimize)
	})
}
