package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/medbank/internal/auth"
	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/service"
)

// QbankHandler serves the practice feature: aggregate cards, question
// selection and answer grading.
type QbankHandler struct {
	qbank  service.QbankService
	logger *slog.Logger
}

// NewQbankHandler creates a new QbankHandler.
func NewQbankHandler(qbank service.QbankService, logger *slog.Logger) *QbankHandler {
	return &QbankHandler{qbank: qbank, logger: logger}
}

// RegisterRoutes registers the qbank routes behind the given protected
// middleware stack.
func (h *QbankHandler) RegisterRoutes(mux *http.ServeMux, protected func(http.Handler) http.Handler) {
	mux.Handle("GET /qbank/summary", protected(http.HandlerFunc(h.Summary)))
	mux.Handle("GET /qbank/topics", protected(http.HandlerFunc(h.Topics)))
	mux.Handle("GET /qbank/specialties", protected(http.HandlerFunc(h.Specialties)))
	mux.Handle("GET /qbank/practice/next", protected(http.HandlerFunc(h.Next)))
	mux.Handle("GET /qbank/practice/session", protected(http.HandlerFunc(h.Session)))
	mux.Handle("POST /qbank/practice/answer", protected(http.HandlerFunc(h.Answer)))
	mux.Handle("POST /qbank/practice/submit", protected(http.HandlerFunc(h.Submit)))
}

// Summary serves the per-user aggregate card data.
func (h *QbankHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	summary, err := h.qbank.Summary(r.Context(), ident)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

// Topics serves topic cards with the caller's progress.
func (h *QbankHandler) Topics(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	topics, err := h.qbank.Topics(r.Context(), ident)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

// Specialties serves specialty cards with the caller's progress.
func (h *QbankHandler) Specialties(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	specialties, err := h.qbank.Specialties(r.Context(), ident)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"specialties": specialties})
}

// Next picks a random unattempted question. An exhausted pool is not an
// error; the client gets a done marker instead of a 404.
func (h *QbankHandler) Next(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	topicSlug := r.URL.Query().Get("topic")
	specialtySlug := r.URL.Query().Get("specialty")

	question, err := h.qbank.NextQuestion(r.Context(), ident, topicSlug, specialtySlug)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			w.Header().Set("Cache-Control", CacheNoStore)
			WriteJSON(w, http.StatusOK, map[string]any{"question": nil, "done": true})
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]any{"question": question, "done": false})
}

// Session serves the caller's recent attempts with running totals.
func (h *QbankHandler) Session(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	sess, err := h.qbank.RecentAttempts(r.Context(), ident, 20)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"session": sess})
}

// Answer grades one answer and records the attempt.
func (h *QbankHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	var req struct {
		QuestionID     string `json:"question_id"`
		SelectedOption string `json:"selected_option"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.qbank.Answer(r.Context(), ident, req.QuestionID, req.SelectedOption)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]any{"result": result})
}

// Submit grades and records a batch of answers.
func (h *QbankHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)

	var req struct {
		Answers []domain.AnswerSubmission `json:"answers"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.qbank.Submit(r.Context(), ident, req.Answers)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, result)
}
