package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cast"

	"whistlemcp/internal/domain"
)

type toggleVisibilityArgs struct {
	Visible     string `json:"visible"`
	AccessToken string `json:"access_token"`
}

func (r *Registry) handleToggleVisibility(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args toggleVisibilityArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}

	var visible bool
	switch args.Visible {
	case "true":
		visible = true
	case "false":
		visible = false
	default:
		return errorResult(domain.E(domain.CodeInvalidArgument, "tools.toggle_visibility",
			"visible must be the literal string \"true\" or \"false\".", nil), nil), nil
	}

	headers := map[string]string{"Authorization": args.AccessToken}
	result, err := r.backend.Request(ctx, "PUT", "/user", map[string]any{"visible": visible}, headers)
	if err != nil {
		return errorResult(err, nil), nil
	}

	user := cast.ToStringMap(result["user"])
	if user == nil {
		return errorResult(domain.E(domain.CodeInternal, "tools.toggle_visibility",
			"Backend did not return an updated profile.", nil), nil), nil
	}

	profile, err := decodeUserProfile(user)
	if err != nil {
		return errorResult(err, nil), nil
	}

	return textResult(map[string]any{
		"success": true,
		"visible": profile.Visible,
		"user":    profile,
	}), nil
}

type profileArgs struct {
	AccessToken string `json:"access_token"`
}

func (r *Registry) handleGetUserProfile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args profileArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err, nil), nil
	}

	headers := map[string]string{"Authorization": args.AccessToken}
	result, err := r.backend.Request(ctx, "GET", "/user", nil, headers)
	if err != nil {
		return errorResult(err, nil), nil
	}

	user := cast.ToStringMap(result["user"])
	if user == nil {
		user = result
	}
	profile, err := decodeUserProfile(user)
	if err != nil {
		return errorResult(err, nil), nil
	}

	return textResult(map[string]any{
		"success": true,
		"user":    profile,
	}), nil
}

// decodeUserProfile lifts the backend's "_id" alias onto "id" before
// decoding into the typed profile.
func decodeUserProfile(user map[string]any) (domain.UserProfile, error) {
	if _, ok := user["id"]; !ok {
		if v, ok := user["_id"]; ok {
			user["id"] = v
		}
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return domain.UserProfile{}, domain.E(domain.CodeInternal, "tools.profile", "malformed profile payload", err)
	}
	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.UserProfile{}, domain.E(domain.CodeInternal, "tools.profile", "malformed profile payload", err)
	}
	if profile.ID == "" {
		return domain.UserProfile{}, domain.E(domain.CodeInternal, "tools.profile", "profile is missing an id", nil)
	}
	return profile, nil
}
