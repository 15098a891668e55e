package domain

import "time"

const (
	ToolSignIn           = "sign_in"
	ToolVerifyOTP        = "verify_otp"
	ToolResendOTP        = "resend_otp"
	ToolSearchBusinesses = "search_businesses"
	ToolToggleVisibility = "toggle_visibility"
	ToolGetUserProfile   = "get_user_profile"
	ToolCreateWhistle    = "create_whistle"
	ToolListWhistles     = "list_whistles"
)

const (
	// RateLimitWindow is the trailing interval bounding request counts
	// per key.
	RateLimitWindow = 60 * time.Second

	// DefaultRateLimit applies to tools absent from RateLimits.
	DefaultRateLimit = 100
)

// RateLimits holds the fixed per-tool request budgets per minute.
var RateLimits = map[string]int{
	ToolSearchBusinesses: 30,
	ToolSignIn:           5,
	ToolVerifyOTP:        10,
	ToolResendOTP:        3,
	ToolCreateWhistle:    20,
	ToolToggleVisibility: 10,
	ToolGetUserProfile:   60,
	ToolListWhistles:     60,
}

// RateLimitFor returns the per-minute budget for a tool.
func RateLimitFor(tool string) int {
	if limit, ok := RateLimits[tool]; ok {
		return limit
	}
	return DefaultRateLimit
}

// ProtectedTools require a valid bearer credential before execution.
var ProtectedTools = map[string]struct{}{
	ToolToggleVisibility: {},
	ToolGetUserProfile:   {},
	ToolCreateWhistle:    {},
	ToolListWhistles:     {},
}

func IsProtectedTool(tool string) bool {
	_, ok := ProtectedTools[tool]
	return ok
}

// AuthKeyedTools derive their rate-limit key from phone arguments rather
// than a credential.
var AuthKeyedTools = map[string]struct{}{
	ToolSignIn:    {},
	ToolVerifyOTP: {},
	ToolResendOTP: {},
}

const (
	DefaultBackendBaseURL = "https://dowhistle.herokuapp.com/v3"
	DevBackendBaseURL     = "https://dowhistle-dev.herokuapp.com/v3"

	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 10 * time.Second

	DefaultSearchRadius = 10
	DefaultSearchLimit  = 10

	DefaultAlertRadiusKm   = 2
	MaxAlertRadiusKm       = 1000
	MaxWhistleTags         = 20
	DefaultWhistleExpiry   = 7 * 24 * time.Hour
	DefaultConfidenceFloor = 0.6
	NeutralFeedbackRating  = 2.5
)

// ProtectedToolErrMessage is the fixed user-facing rejection for
// protected tools called without a valid credential.
const ProtectedToolErrMessage = "Authentication required: provide a bearer access token for this tool."
