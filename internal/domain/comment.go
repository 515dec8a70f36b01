package domain

import "time"

// Comment is a discussion entry on a question. Top-level comments have a
// nil ParentID; replies point at their parent.
type Comment struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	ParentID   *string   `json:"parent_id,omitempty"`
	Likes      int       `json:"likes"`
	Liked      bool      `json:"liked"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeResult reports the state of a like toggle after it was applied.
type LikeResult struct {
	CommentID string `json:"comment_id"`
	Liked     bool   `json:"liked"`
	Likes     int    `json:"likes"`
}
