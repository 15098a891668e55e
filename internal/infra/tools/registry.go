package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/backend"
	"whistlemcp/internal/infra/extract"
)

// Registry owns the tool handlers and their backend wiring.
type Registry struct {
	backend   backend.Caller
	extractor *extract.Extractor
	logger    *zap.Logger
}

func NewRegistry(caller backend.Caller, extractor *extract.Extractor, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{backend: caller, extractor: extractor, logger: logger}
}

// Register adds every tool to the server. Definitions stay colocated
// with their handlers so schema drift shows up in review.
func (r *Registry) Register(server *mcp.Server) {
	server.AddTool(signInTool(), r.handleSignIn)
	server.AddTool(verifyOTPTool(), r.handleVerifyOTP)
	server.AddTool(resendOTPTool(), r.handleResendOTP)
	server.AddTool(searchBusinessesTool(), r.handleSearchBusinesses)
	server.AddTool(toggleVisibilityTool(), r.handleToggleVisibility)
	server.AddTool(getUserProfileTool(), r.handleGetUserProfile)
	server.AddTool(createWhistleTool(), r.handleCreateWhistle)
	server.AddTool(listWhistlesTool(), r.handleListWhistles)
}

func signInTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolSignIn,
		Description: "Start phone-based sign in. Sends an OTP to the given phone number and returns the user id needed for verify_otp.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": map[string]any{
					"type":        "string",
					"description": "Phone number without country code. Formatting characters and a leading '+<code>' prefix are accepted and normalized.",
				},
				"country_code": map[string]any{
					"type":        "string",
					"description": "Country calling code, with or without the leading '+' (e.g. \"+1\" or \"91\").",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Display name for the account.",
				},
				"latitude": map[string]any{
					"type":        "number",
					"description": "Current latitude, -90 to 90.",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Current longitude, -180 to 180.",
				},
			},
			"required": []string{"phone", "country_code", "name", "latitude", "longitude"},
		},
	}
}

func verifyOTPTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolVerifyOTP,
		Description: "Verify the OTP sent during sign_in. Returns the access token used by the authenticated tools.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{
					"type":        "string",
					"description": "User id returned by sign_in. Not the phone number.",
				},
				"otp_code": map[string]any{
					"type":        "string",
					"description": "One-time passcode received by the user, digits only.",
				},
			},
			"required": []string{"user_id", "otp_code"},
		},
	}
}

func resendOTPTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolResendOTP,
		Description: "Resend the OTP for a pending sign in.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{
					"type":        "string",
					"description": "User id returned by sign_in.",
				},
			},
			"required": []string{"user_id"},
		},
	}
}

func searchBusinessesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolSearchBusinesses,
		Description: "Search nearby visible service providers by keyword and location. Returns providers with distance and feedback rating.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Single search keyword. If multiple pipe-separated keywords are given, only the first is used.",
				},
				"latitude": map[string]any{
					"type":        "number",
					"description": "Search center latitude.",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Search center longitude.",
				},
				"radius": map[string]any{
					"type":        "integer",
					"description": "Search radius in kilometers, 1-1000. Defaults to 10.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results, 1-1000. Defaults to 10.",
				},
			},
			"required": []string{"keyword", "latitude", "longitude"},
		},
	}
}

func toggleVisibilityTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolToggleVisibility,
		Description: "Set whether the signed-in user is visible to nearby searchers. Requires authentication.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"visible": map[string]any{
					"type":        "string",
					"description": "Literal \"true\" or \"false\".",
				},
				"access_token": map[string]any{
					"type":        "string",
					"description": "Access token from verify_otp. May also be supplied via the Authorization header.",
				},
			},
			"required": []string{"visible"},
		},
	}
}

func getUserProfileTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolGetUserProfile,
		Description: "Fetch the signed-in user's profile, including visibility and whistle summary. Requires authentication.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"access_token": map[string]any{
					"type":        "string",
					"description": "Access token from verify_otp. May also be supplied via the Authorization header.",
				},
			},
			"required": []string{},
		},
	}
}

func createWhistleTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolCreateWhistle,
		Description: "Create a whistle (service offer or request) from a natural-language description. The description is parsed into tags, radius and expiry; ambiguous input returns a clarification request instead of creating anything. Requires authentication.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_input": map[string]any{
					"type":        "string",
					"description": "Natural-language description of the service offered or needed.",
				},
				"access_token": map[string]any{
					"type":        "string",
					"description": "Access token from verify_otp. May also be supplied via the Authorization header.",
				},
				"confidence_threshold": map[string]any{
					"type":        "number",
					"description": "Minimum extraction confidence (0-1) before asking for clarification. Defaults to 0.6.",
				},
				"force_create": map[string]any{
					"type":        "boolean",
					"description": "Create even when confidence is below the threshold.",
				},
			},
			"required": []string{"user_input"},
		},
	}
}

func listWhistlesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        domain.ToolListWhistles,
		Description: "List the signed-in user's whistles. Requires authentication.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"access_token": map[string]any{
					"type":        "string",
					"description": "Access token from verify_otp. May also be supplied via the Authorization header.",
				},
				"active_only": map[string]any{
					"type":        "boolean",
					"description": "When true, return only active whistles.",
				},
			},
			"required": []string{},
		},
	}
}
