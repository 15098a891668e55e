package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

type signInArgs struct {
	Phone       string  `json:"phone"`
	CountryCode string  `json:"country_code"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (r *Registry) handleSignIn(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args signInArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}
	if err := validateCoordinates(args.Latitude, args.Longitude); err != nil {
		return errorResult(err, nil), nil
	}
	normalized, err := NormalizePhone(args.Phone, args.CountryCode)
	if err != nil {
		return errorResult(err, nil), nil
	}

	payload := map[string]any{
		"phone":       normalized.Phone,
		"countryCode": normalized.CountryCode,
		"name":        args.Name,
		"location":    []float64{args.Latitude, args.Longitude},
	}

	r.logger.Info("sign in requested",
		zap.String("phone", redactPhone(normalized.Phone)),
		zap.String("country_code", normalized.CountryCode))

	result, err := r.backend.Request(ctx, "POST", "/twilio/sign-in", payload, nil)
	if err != nil {
		return errorResult(err, payload), nil
	}

	user := cast.ToStringMap(result["user"])
	userID := cast.ToString(user["id"])
	if userID == "" {
		userID = cast.ToString(user["_id"])
	}

	return textResult(map[string]any{
		"success": true,
		"message": cast.ToString(result["message"]),
		"user": map[string]any{
			"id":  userID,
			"otp": cast.ToString(user["otp"]),
		},
	}), nil
}

type verifyOTPArgs struct {
	UserID  string `json:"user_id"`
	OTPCode string `json:"otp_code"`
}

func (r *Registry) handleVerifyOTP(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args verifyOTPArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}
	if err := validateUserID(args.UserID); err != nil {
		return errorResult(err, nil), nil
	}
	if err := validateOTPCode(args.OTPCode); err != nil {
		return errorResult(err, nil), nil
	}

	payload := map[string]any{"id": args.UserID, "otp": args.OTPCode}
	result, err := r.backend.Request(ctx, "POST", "/twilio/verify-otp", payload, nil)
	if err != nil {
		return errorResult(err, map[string]any{"id": args.UserID}), nil
	}

	user := cast.ToStringMap(result["user"])
	return textResult(map[string]any{
		"success":     true,
		"message":     cast.ToString(result["message"]),
		"token":       cast.ToString(result["token"]),
		"uploadToken": cast.ToString(result["uploadToken"]),
		"user": map[string]any{
			"name":         cast.ToString(user["name"]),
			"phone":        cast.ToString(user["phone"]),
			"countryCode":  cast.ToString(user["countryCode"]),
			"taxiProvider": cast.ToBool(user["taxiProvider"]),
			"certified":    cast.ToBool(user["certified"]),
		},
	}), nil
}

type resendOTPArgs struct {
	UserID string `json:"user_id"`
}

func (r *Registry) handleResendOTP(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resendOTPArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}
	if err := validateUserID(args.UserID); err != nil {
		return errorResult(err, nil), nil
	}

	payload := map[string]any{"userid": args.UserID}
	result, err := r.backend.Request(ctx, "POST", "/twilio/resend-otp", payload, nil)
	if err != nil {
		return errorResult(err, payload), nil
	}

	return textResult(map[string]any{
		"success": true,
		"message": cast.ToString(result["message"]),
	}), nil
}

func redactPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return phone[:2] + "***" + phone[len(phone)-2:]
}
