package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facture-ocr/internal/model"
)

func TestAPIError_IsMatchesKindOnly(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"auth", model.NewAuthError(401, nil), model.ErrAuth},
		{"rate limit", model.NewRateLimitError(30, nil), model.ErrRateLimit},
		{"validation", model.NewValidationError("bad", 422, nil), model.ErrValidation},
		{"server", model.NewServerError(503, nil), model.ErrServer},
		{"generic", model.NewGenericError("boom", 0, nil), model.ErrGeneric},
	}

	all := []error{model.ErrAuth, model.ErrRateLimit, model.ErrValidation, model.ErrServer, model.ErrGeneric}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range all {
				assert.Equal(t, s == tt.sentinel, errors.Is(tt.err, s), "sentinel %v", s)
			}
		})
	}
}

func TestAPIError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("extract: %w", model.NewAuthError(401, []byte(`{}`)))

	assert.True(t, model.IsAuth(err))
	assert.False(t, model.IsServer(err))

	ae, ok := model.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 401, ae.StatusCode)
	assert.Equal(t, "invalid or missing credential", ae.Message)
}

func TestNewRateLimitError_DefaultsRetryAfter(t *testing.T) {
	assert.Equal(t, 60, model.NewRateLimitError(-1, nil).RetryAfter)
	assert.Equal(t, 60, model.NewRateLimitError(-5, nil).RetryAfter)
	assert.Equal(t, 0, model.NewRateLimitError(0, nil).RetryAfter)
	assert.Equal(t, 12, model.NewRateLimitError(12, nil).RetryAfter)

	secs, ok := model.RetryAfterSeconds(model.NewRateLimitError(-1, nil))
	assert.True(t, ok)
	assert.Equal(t, 60, secs)

	secs, ok = model.RetryAfterSeconds(model.NewRateLimitError(0, nil))
	assert.True(t, ok)
	assert.Equal(t, 0, secs)

	_, ok = model.RetryAfterSeconds(model.NewServerError(500, nil))
	assert.False(t, ok)
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "server (http 503): server error: 503", model.NewServerError(503, nil).Error())
	assert.Equal(t, "generic: dial tcp: refused", model.NewGenericError("dial tcp: refused", 0, nil).Error())
	assert.Equal(t,
		"rate_limit (http 429): quota exceeded, retry later (retry after 60s)",
		model.NewRateLimitError(-1, nil).Error())
}

func TestAPIError_Retryable(t *testing.T) {
	assert.False(t, model.NewAuthError(401, nil).Retryable())
	assert.False(t, model.NewValidationError("x", 0, nil).Retryable())
	assert.True(t, model.NewRateLimitError(0, nil).Retryable())
	assert.True(t, model.NewServerError(500, nil).Retryable())
	assert.True(t, model.NewGenericError("x", 0, nil).Retryable())
}

func TestAsAPIError_NotAnAPIError(t *testing.T) {
	_, ok := model.AsAPIError(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, model.IsGeneric(errors.New("plain")))
}

func TestNewNetworkError_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := model.NewNetworkError("connection refused", cause)

	assert.True(t, model.IsGeneric(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, err.StatusCode)
	assert.Nil(t, err.Raw)
}
