package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment_Validation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for invalid input")
	}))
	defer srv.Close()

	svc := NewCommentService(newTestDataClient(t, srv), testLogger())

	var ve *domain.ValidationError

	_, err := svc.Create(context.Background(), testIdentity(), "q1", "   ", nil)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "body")

	_, err = svc.Create(context.Background(), testIdentity(), "q1", strings.Repeat("x", 4001), nil)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "body")
}

func TestCreateComment_InsertsRow(t *testing.T) {
	var inserted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/comments", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc := NewCommentService(newTestDataClient(t, srv), testLogger())

	comment, err := svc.Create(context.Background(), testIdentity(), "q1", "  great question  ", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "great question", comment.Body, "body must be trimmed")
	assert.Equal(t, "u", comment.Author)
	assert.Nil(t, comment.ParentID)

	assert.Equal(t, comment.ID, inserted["id"])
	assert.Equal(t, "user-1", inserted["user_id"])
	assert.NotContains(t, inserted, "parent_id", "top-level comments carry no parent")
}

func TestCreateComment_Reply(t *testing.T) {
	var inserted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc := NewCommentService(newTestDataClient(t, srv), testLogger())

	parent := "c-parent"
	comment, err := svc.Create(context.Background(), testIdentity(), "q1", "agreed", &parent)

	require.NoError(t, err)
	require.NotNil(t, comment.ParentID)
	assert.Equal(t, "c-parent", *comment.ParentID)
	assert.Equal(t, "c-parent", inserted["parent_id"])
}

func TestListComments_NilBecomesEmptySlice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/rpc/question_comments", r.URL.Path)

		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "q1", args["p_question_id"])
		assert.Equal(t, "user-1", args["p_user_id"])

		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	svc := NewCommentService(newTestDataClient(t, srv), testLogger())

	comments, err := svc.List(context.Background(), testIdentity(), "q1")

	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)
}

// likesUpstream fakes the comment_likes table with real toggle state.
type likesUpstream struct {
	liked bool
}

func (u *likesUpstream) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/comment_likes" {
			t.Errorf("unexpected upstream call: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}

		switch {
		case r.Method == http.MethodGet && r.Header.Get("Accept") == "application/vnd.pgrst.object+json":
			if u.liked {
				_ = json.NewEncoder(w).Encode(map[string]string{"comment_id": "c1"})
			} else {
				w.WriteHeader(http.StatusNotAcceptable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    "PGRST116",
					"message": "JSON object requested, multiple (or no) rows returned",
				})
			}

		case r.Method == http.MethodGet:
			rows := []map[string]string{}
			if u.liked {
				rows = append(rows, map[string]string{"user_id": "user-1"})
			}
			_ = json.NewEncoder(w).Encode(rows)

		case r.Method == http.MethodPost:
			u.liked = true
			w.WriteHeader(http.StatusCreated)

		case r.Method == http.MethodDelete:
			u.liked = false
			w.WriteHeader(http.StatusNoContent)

		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
}

func TestToggleLike_FlipsBothWays(t *testing.T) {
	up := &likesUpstream{}
	srv := httptest.NewServer(up.handler(t))
	defer srv.Close()

	svc := NewCommentService(newTestDataClient(t, srv), testLogger())

	first, err := svc.ToggleLike(context.Background(), testIdentity(), "c1")
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.Likes)

	second, err := svc.ToggleLike(context.Background(), testIdentity(), "c1")
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.Likes)
}
