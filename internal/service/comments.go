package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/supabase"
	"github.com/google/uuid"
)

const maxCommentLength = 4000

// CommentService serves discussion threads on questions. Listing goes
// through RPCs so like counts, the caller's liked flag and reply counts
// come back in one round trip; writes hit the tables directly.
type CommentService interface {
	// List returns the top-level comments on a question, newest first.
	List(ctx context.Context, ident *domain.Identity, questionID string) ([]domain.Comment, error)

	// Create posts a comment (or a reply when parentID is non-nil).
	Create(ctx context.Context, ident *domain.Identity, questionID, body string, parentID *string) (*domain.Comment, error)

	// Replies returns the replies of one comment, oldest first.
	Replies(ctx context.Context, ident *domain.Identity, commentID string) ([]domain.Comment, error)

	// ToggleLike flips the caller's like on a comment and returns the new
	// state. Two sequential calls toggle liked true then false.
	ToggleLike(ctx context.Context, ident *domain.Identity, commentID string) (*domain.LikeResult, error)
}

type commentService struct {
	data   *supabase.DataClient
	logger *slog.Logger
}

// NewCommentService creates the comment service.
func NewCommentService(data *supabase.DataClient, logger *slog.Logger) CommentService {
	return &commentService{data: data, logger: logger}
}

func (s *commentService) List(ctx context.Context, ident *domain.Identity, questionID string) ([]domain.Comment, error) {
	const op = "comments.list"

	var comments []domain.Comment
	args := map[string]any{
		"p_question_id": questionID,
		"p_user_id":     ident.ID,
	}
	if err := s.data.RPC(ctx, ident.Token, "question_comments", args, &comments); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load comments")
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

func (s *commentService) Create(ctx context.Context, ident *domain.Identity, questionID, body string, parentID *string) (*domain.Comment, error) {
	const op = "comments.create"

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.NewValidationError(op, "body", "must not be empty")
	}
	if len(body) > maxCommentLength {
		return nil, domain.NewValidationError(op, "body", "must be at most 4000 characters")
	}

	comment := domain.Comment{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		UserID:     ident.ID,
		Author:     ident.Username,
		Body:       body,
		ParentID:   parentID,
		CreatedAt:  time.Now().UTC(),
	}

	row := map[string]any{
		"id":          comment.ID,
		"question_id": comment.QuestionID,
		"user_id":     comment.UserID,
		"body":        comment.Body,
	}
	if parentID != nil {
		row["parent_id"] = *parentID
	}
	if err := s.data.Insert(ctx, ident.Token, "comments", row, nil); err != nil {
		return nil, domain.Upstream(err, op, "Failed to post comment")
	}
	return &comment, nil
}

func (s *commentService) Replies(ctx context.Context, ident *domain.Identity, commentID string) ([]domain.Comment, error) {
	const op = "comments.replies"

	var replies []domain.Comment
	args := map[string]any{
		"p_comment_id": commentID,
		"p_user_id":    ident.ID,
	}
	if err := s.data.RPC(ctx, ident.Token, "comment_replies", args, &replies); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load replies")
	}
	if replies == nil {
		replies = []domain.Comment{}
	}
	return replies, nil
}

func (s *commentService) ToggleLike(ctx context.Context, ident *domain.Identity, commentID string) (*domain.LikeResult, error) {
	const op = "comments.like"

	likeQuery := "select=comment_id&comment_id=eq." + url.QueryEscape(commentID) +
		"&user_id=eq." + url.QueryEscape(ident.ID)

	var existing struct {
		CommentID string `json:"comment_id"`
	}
	liked := true
	err := s.data.SelectSingle(ctx, ident.Token, "comment_likes", likeQuery, &existing)
	switch {
	case err == nil:
		// Already liked: remove. The likes table is the source of truth;
		// a raced double-toggle resolves to whatever row state wins there.
		if err := s.data.Delete(ctx, ident.Token, "comment_likes", likeQuery); err != nil {
			return nil, domain.Upstream(err, op, "Failed to remove like")
		}
		liked = false
	case errors.Is(err, supabase.ErrNotFound):
		row := map[string]any{"comment_id": commentID, "user_id": ident.ID}
		if err := s.data.Insert(ctx, ident.Token, "comment_likes", row, nil); err != nil {
			return nil, domain.Upstream(err, op, "Failed to like comment")
		}
	default:
		return nil, domain.Upstream(err, op, "Failed to load like state")
	}

	var rows []struct {
		UserID string `json:"user_id"`
	}
	countQuery := "select=user_id&comment_id=eq." + url.QueryEscape(commentID)
	if err := s.data.Select(ctx, ident.Token, "comment_likes", countQuery, &rows); err != nil {
		return nil, domain.Upstream(err, op, "Failed to count likes")
	}

	return &domain.LikeResult{
		CommentID: commentID,
		Liked:     liked,
		Likes:     len(rows),
	}, nil
}
