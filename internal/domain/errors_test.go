package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "", ErrorCode(nil))
	})

	t.Run("domain error", func(t *testing.T) {
		err := Errorf(ECONFLICT, "auth.signup", "duplicate account")
		assert.Equal(t, ECONFLICT, ErrorCode(err))
	})

	t.Run("wrapped domain error", func(t *testing.T) {
		inner := Errorf(ENOTFOUND, "qbank.fetch", "missing")
		wrapped := fmt.Errorf("outer: %w", inner)
		assert.Equal(t, ENOTFOUND, ErrorCode(wrapped))
	})

	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, EINTERNAL, ErrorCode(errors.New("boom")))
	})
}

func TestErrorMessage_HidesWrappedDetails(t *testing.T) {
	upstream := errors.New("connection reset by peer")
	err := Upstream(upstream, "qbank.summary", "Failed to load practice summary")

	assert.Equal(t, "Failed to load practice summary", ErrorMessage(err))
	assert.True(t, errors.Is(err, upstream), "wrapped cause must survive for errors.Is")
}

type fakeProviderError struct{ msg string }

func (e *fakeProviderError) Error() string         { return "upstream 500: " + e.msg }
func (e *fakeProviderError) ClientMessage() string { return e.msg }

func TestUpstream_SurfacesProviderMessage(t *testing.T) {
	cause := &fakeProviderError{msg: "permission denied for table attempts"}
	err := Upstream(cause, "qbank.answer", "Failed to grade answer")

	assert.Equal(t, "permission denied for table attempts", ErrorMessage(err))
	assert.True(t, errors.Is(err, cause), "wrapped cause must survive for errors.Is")
}

func TestUpstream_EmptyProviderMessageUsesFallback(t *testing.T) {
	err := Upstream(&fakeProviderError{}, "qbank.answer", "Failed to grade answer")

	assert.Equal(t, "Failed to grade answer", ErrorMessage(err))
}

func TestErrorMessage_PlainErrorIsGeneric(t *testing.T) {
	msg := ErrorMessage(errors.New("pq: duplicate key value"))
	assert.NotContains(t, msg, "duplicate key", "internal details must not leak")
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("token expired")
	err := Wrap(cause, ESESSIONEXPIRED, "auth.refresh", "Could not refresh session")

	require.NotNil(t, err)
	assert.Equal(t, ESESSIONEXPIRED, ErrorCode(err))
	assert.Equal(t, "auth.refresh", ErrorOp(err))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestConstructors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code string
	}{
		{"not found", NotFound("op", "question", "q1"), ENOTFOUND},
		{"invalid", Invalid("op", "bad input"), EINVALID},
		{"unauthorized", Unauthorized("op", "no"), EUNAUTHORIZED},
		{"session expired", SessionExpired("op", "gone"), ESESSIONEXPIRED},
		{"conflict", Conflict("op", "exists"), ECONFLICT},
		{"rate limit", RateLimit("op"), ERATELIMIT},
		{"upstream", Upstream(errors.New("x"), "op", "failed"), EUPSTREAM},
		{"internal", Internal(errors.New("x"), "op", "failed"), EINTERNAL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, ErrorCode(tc.err))
		})
	}
}

func TestValidationError_Accumulation(t *testing.T) {
	var err error
	err = AddFieldError(err, "email", "must be a valid email address")
	err = AddFieldError(err, "password", "must be at least 6 characters")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "must be a valid email address", ve.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", ve.Fields["password"])
}

func TestNewValidationError_SingleField(t *testing.T) {
	ve := NewValidationError("comments.create", "body", "must not be empty")

	require.NotNil(t, ve)
	assert.Equal(t, "comments.create", ve.Op)
	assert.Equal(t, "must not be empty", ve.Fields["body"])
}
