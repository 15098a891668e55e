package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	err := E(CodeInvalidArgument, "normalize.phone", "bad phone", nil)

	code, ok := CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidArgument, code)
	assert.True(t, IsCode(err, CodeInvalidArgument))
	assert.False(t, IsCode(err, CodeInternal))
	assert.Equal(t, "bad phone", MessageFrom(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, "backend.request", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsCode(err, CodeUnavailable))
}

func TestCodeFromPlainError(t *testing.T) {
	_, ok := CodeFrom(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, "plain", MessageFrom(errors.New("plain")))
}

func TestRateLimitFor(t *testing.T) {
	assert.Equal(t, 5, RateLimitFor(ToolSignIn))
	assert.Equal(t, 3, RateLimitFor(ToolResendOTP))
	assert.Equal(t, DefaultRateLimit, RateLimitFor("unknown_tool"))
}

func TestIsProtectedTool(t *testing.T) {
	assert.True(t, IsProtectedTool(ToolCreateWhistle))
	assert.True(t, IsProtectedTool(ToolListWhistles))
	assert.True(t, IsProtectedTool(ToolToggleVisibility))
	assert.True(t, IsProtectedTool(ToolGetUserProfile))
	assert.False(t, IsProtectedTool(ToolSignIn))
	assert.False(t, IsProtectedTool(ToolSearchBusinesses))
}
