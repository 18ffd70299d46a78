package report

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleDownload serves the latest finalized report for a session as PDF.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := uuid.Parse(sessionID); err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	rep, err := h.svc.Latest(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}
	if rep == nil {
		http.Error(w, "No report for this session", http.StatusNotFound)
		return
	}

	pdfData, err := h.svc.RenderPDF(*rep)
	if err != nil {
		http.Error(w, "PDF rendering failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=report_%s.pdf", sessionID))
	w.Write(pdfData)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/sessions/{sessionID}/report.pdf", h.HandleDownload)
}
