package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
)

func TestMemoryStoreWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := store.CheckAndRecord(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := store.CheckAndRecord(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "request over the budget is rejected")
	assert.Equal(t, 3, store.Len("k"), "rejected request must not be recorded")

	now = now.Add(61 * time.Second)
	allowed, err = store.CheckAndRecord(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "window expiry frees the budget")
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	allowed, err := store.CheckAndRecord(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = store.CheckAndRecord(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = store.CheckAndRecord(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "another key keeps its own budget")
}

type failingStore struct{}

func (failingStore) CheckAndRecord(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("store down")
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(failingStore{}, zap.NewNop())
	err := limiter.Allow(context.Background(), domain.ToolSignIn, "k")
	assert.NoError(t, err, "store failures must not block calls")
}

func TestLimiterRejectionCode(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	limiter := NewLimiter(store, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < domain.RateLimitFor(domain.ToolResendOTP); i++ {
		require.NoError(t, limiter.Allow(ctx, domain.ToolResendOTP, "k"))
	}
	err := limiter.Allow(ctx, domain.ToolResendOTP, "k")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeResourceExhausted))
	assert.Contains(t, err.Error(), "resend_otp")
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "sign in keys on phone identity",
			tool: domain.ToolSignIn,
			args: map[string]any{"phone": "9994076214", "country_code": "+91"},
			want: "sign_in:+919994076214",
		},
		{
			name: "sign in without phone",
			tool: domain.ToolSignIn,
			args: map[string]any{},
			want: "sign_in:unknown",
		},
		{
			name: "verify shares the unknown bucket without a phone",
			tool: domain.ToolVerifyOTP,
			args: map[string]any{"user_id": "u1", "otp_code": "123456"},
			want: "verify_otp:unknown",
		},
		{
			name: "token tools key on token suffix",
			tool: domain.ToolListWhistles,
			args: map[string]any{"access_token": "abcdefghijklmnop"},
			want: "list_whistles:ijklmnop",
		},
		{
			name: "short token used whole",
			tool: domain.ToolListWhistles,
			args: map[string]any{"access_token": "abc"},
			want: "list_whistles:abc",
		},
		{
			name: "anonymous bucket",
			tool: domain.ToolSearchBusinesses,
			args: map[string]any{"keyword": "plumber"},
			want: "search_businesses:anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyFor(tt.tool, tt.args))
		})
	}
}
