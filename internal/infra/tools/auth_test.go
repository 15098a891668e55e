package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whistlemcp/internal/domain"
)

func TestHandleSignIn(t *testing.T) {
	backend := &fakeBackend{result: map[string]any{
		"message": "OTP sent",
		"user":    map[string]any{"_id": "64a1f0c2e4b0a93d2c8f1b77", "otp": "482915"},
	}}
	registry := newTestRegistry(backend)

	res, err := registry.handleSignIn(context.Background(), callReq(domain.ToolSignIn,
		`{"phone":"(999) 407-6214","country_code":"91","name":"Asha","latitude":12.97,"longitude":77.59}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	body := structured(t, res)
	assert.Equal(t, true, body["success"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "64a1f0c2e4b0a93d2c8f1b77", user["id"])
	assert.Equal(t, "482915", user["otp"])

	require.Equal(t, "POST", backend.lastMethod)
	require.Equal(t, "/twilio/sign-in", backend.lastEndpoint)
	sent, ok := backend.lastBody.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "9994076214", sent["phone"])
	assert.Equal(t, "+91", sent["countryCode"])
	assert.Equal(t, []float64{12.97, 77.59}, sent["location"])
}

func TestHandleSignInRejectsBadCoordinates(t *testing.T) {
	backend := &fakeBackend{}
	registry := newTestRegistry(backend)

	res, err := registry.handleSignIn(context.Background(), callReq(domain.ToolSignIn,
		`{"phone":"5551234567","country_code":"+1","name":"Asha","latitude":95,"longitude":0}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Equal(t, 0, backend.calls, "invalid input must not reach the backend")

	body := structured(t, res)
	assert.Equal(t, string(domain.CodeInvalidArgument), body["code"])
}

func TestHandleVerifyOTP(t *testing.T) {
	backend := &fakeBackend{result: map[string]any{
		"message":     "verified",
		"token":       "tok-123456",
		"uploadToken": "up-999",
		"user":        map[string]any{"name": "Asha", "phone": "9994076214", "countryCode": "+91"},
	}}
	registry := newTestRegistry(backend)

	res, err := registry.handleVerifyOTP(context.Background(), callReq(domain.ToolVerifyOTP,
		`{"user_id":"64a1f0c2e4b0a93d2c8f1b77","otp_code":"123456"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	body := structured(t, res)
	assert.Equal(t, "tok-123456", body["token"])
	assert.Equal(t, "up-999", body["uploadToken"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Asha", user["name"])
	assert.Equal(t, "+91", user["countryCode"])

	sent, ok := backend.lastBody.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "64a1f0c2e4b0a93d2c8f1b77", sent["id"])
	assert.Equal(t, "123456", sent["otp"])
}

func TestHandleVerifyOTPRejectsPhoneAsUserID(t *testing.T) {
	backend := &fakeBackend{}
	registry := newTestRegistry(backend)

	res, err := registry.handleVerifyOTP(context.Background(), callReq(domain.ToolVerifyOTP,
		`{"user_id":"+15551234567","otp_code":"123456"}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Equal(t, 0, backend.calls)
}

func TestHandleVerifyOTPRejectsNonDigitOTP(t *testing.T) {
	backend := &fakeBackend{}
	registry := newTestRegistry(backend)

	res, err := registry.handleVerifyOTP(context.Background(), callReq(domain.ToolVerifyOTP,
		`{"user_id":"64a1f0c2e4b0a93d2c8f1b77","otp_code":"12a456"}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Equal(t, 0, backend.calls)
}

func TestHandleResendOTP(t *testing.T) {
	backend := &fakeBackend{result: map[string]any{"message": "OTP resent"}}
	registry := newTestRegistry(backend)

	res, err := registry.handleResendOTP(context.Background(), callReq(domain.ToolResendOTP,
		`{"user_id":"64a1f0c2e4b0a93d2c8f1b77"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	sent, ok := backend.lastBody.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "64a1f0c2e4b0a93d2c8f1b77", sent["userid"])
	assert.Equal(t, "/twilio/resend-otp", backend.lastEndpoint)
}
