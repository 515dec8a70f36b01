package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/medbank/internal/service"
)

// TextbookHandler serves shared read-only content: the textbook tree and
// reference ranges. These routes are public-cacheable and still sit
// behind authentication like the rest of the API.
type TextbookHandler struct {
	content service.ContentService
	logger  *slog.Logger
}

// NewTextbookHandler creates a new TextbookHandler.
func NewTextbookHandler(content service.ContentService, logger *slog.Logger) *TextbookHandler {
	return &TextbookHandler{content: content, logger: logger}
}

// RegisterRoutes registers the content routes behind the given protected
// middleware stack. The literal /textbook/outline pattern wins over the
// {slug} wildcard.
func (h *TextbookHandler) RegisterRoutes(mux *http.ServeMux, protected func(http.Handler) http.Handler) {
	mux.Handle("GET /textbook/outline", protected(http.HandlerFunc(h.Outline)))
	mux.Handle("GET /textbook/specialty/{slug}", protected(http.HandlerFunc(h.Specialty)))
	mux.Handle("GET /textbook/{slug}", protected(http.HandlerFunc(h.Topic)))
	mux.Handle("GET /reference-ranges", protected(http.HandlerFunc(h.ReferenceRanges)))
}

// Outline serves the full specialty/topic tree.
func (h *TextbookHandler) Outline(w http.ResponseWriter, r *http.Request) {
	outline, err := h.content.Outline(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePublicContent)
	WriteJSON(w, http.StatusOK, map[string]any{"outline": outline})
}

// Specialty serves one specialty with its topics. Unknown slugs come back
// as a synthesized empty outline, never a 404.
func (h *TextbookHandler) Specialty(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	specialty, err := h.content.Specialty(r.Context(), slug)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePublicContent)
	WriteJSON(w, http.StatusOK, map[string]any{"specialty": specialty})
}

// Topic serves a topic page with its ordered sections.
func (h *TextbookHandler) Topic(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	topic, err := h.content.Topic(r.Context(), slug)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePublicContent)
	WriteJSON(w, http.StatusOK, topic)
}

// ReferenceRanges serves all reference range groups with items bucketed.
func (h *TextbookHandler) ReferenceRanges(w http.ResponseWriter, r *http.Request) {
	groups, err := h.content.ReferenceRanges(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePublicContent)
	WriteJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
