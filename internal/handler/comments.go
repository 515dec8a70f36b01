package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/medbank/internal/auth"
	"github.com/DukeRupert/medbank/internal/service"
)

// CommentsHandler serves the discussion threads on questions.
type CommentsHandler struct {
	comments service.CommentService
	logger   *slog.Logger
}

// NewCommentsHandler creates a new CommentsHandler.
func NewCommentsHandler(comments service.CommentService, logger *slog.Logger) *CommentsHandler {
	return &CommentsHandler{comments: comments, logger: logger}
}

// RegisterRoutes registers the comment routes behind the given protected
// middleware stack.
func (h *CommentsHandler) RegisterRoutes(mux *http.ServeMux, protected func(http.Handler) http.Handler) {
	mux.Handle("GET /qbank/questions/{id}/comments", protected(http.HandlerFunc(h.List)))
	mux.Handle("POST /qbank/questions/{id}/comments", protected(http.HandlerFunc(h.Create)))
	mux.Handle("GET /qbank/comments/{id}/replies", protected(http.HandlerFunc(h.Replies)))
	mux.Handle("POST /qbank/comments/{id}/like", protected(http.HandlerFunc(h.Like)))
}

// List serves the top-level comments on a question.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	questionID := r.PathValue("id")

	comments, err := h.comments.List(r.Context(), ident, questionID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// Create posts a comment or reply on a question.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	questionID := r.PathValue("id")

	var req struct {
		Body     string  `json:"body"`
		ParentID *string `json:"parent_id"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), ident, questionID, req.Body, req.ParentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

// Replies serves the replies of one comment.
func (h *CommentsHandler) Replies(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	commentID := r.PathValue("id")

	replies, err := h.comments.Replies(r.Context(), ident, commentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CachePrivateShort)
	WriteJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

// Like toggles the caller's like on a comment.
func (h *CommentsHandler) Like(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	commentID := r.PathValue("id")

	result, err := h.comments.ToggleLike(r.Context(), ident, commentID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, result)
}
