package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/deals", h.CreateDeal)
		r.Get("/reviews/pending", h.PendingReviews)

		r.Route("/deals/{dealId}", func(r chi.Router) {
			r.Post("/upload-session", func(w http.ResponseWriter, r *http.Request) {
				h.OpenUploadSession(w, r, chi.URLParam(r, "dealId"))
			})
			r.Post("/documents", func(w http.ResponseWriter, r *http.Request) {
				h.UploadDocument(w, r, chi.URLParam(r, "dealId"))
			})
			r.Post("/uploads/complete", func(w http.ResponseWriter, r *http.Request) {
				h.CompleteUploads(w, r, chi.URLParam(r, "dealId"))
			})
			r.Post("/transition", func(w http.ResponseWriter, r *http.Request) {
				h.TransitionDeal(w, r, chi.URLParam(r, "dealId"))
			})
			r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
				h.GetStatus(w, r, chi.URLParam(r, "dealId"))
			})
			r.Get("/underwriting-gate", func(w http.ResponseWriter, r *http.Request) {
				h.UnderwritingGate(w, r, chi.URLParam(r, "dealId"))
			})
			r.Get("/readiness", func(w http.ResponseWriter, r *http.Request) {
				h.Readiness(w, r, chi.URLParam(r, "dealId"))
			})
			r.Post("/submit", func(w http.ResponseWriter, r *http.Request) {
				h.Submit(w, r, chi.URLParam(r, "dealId"))
			})
			r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
				h.Chat(w, r, chi.URLParam(r, "dealId"))
			})
		})

		r.Post("/documents/{documentId}/review", func(w http.ResponseWriter, r *http.Request) {
			h.SubmitReview(w, r, chi.URLParam(r, "documentId"))
		})
		r.Get("/documents/{documentId}/download", func(w http.ResponseWriter, r *http.Request) {
			h.DownloadDocument(w, r, chi.URLParam(r, "documentId"))
		})
	})

	return r
}
