package ratelimit

import (
	"github.com/spf13/cast"

	"whistlemcp/internal/domain"
)

// KeyFor derives the rate-limit key for a tool call from its raw
// arguments. It always produces a key:
//   - OTP/sign-in tools key on the raw phone identity so retry storms
//     against one number share a budget,
//   - calls carrying an access token key on the token's last 8 characters,
//   - everything else shares a per-tool anonymous bucket.
func KeyFor(tool string, args map[string]any) string {
	if _, ok := domain.AuthKeyedTools[tool]; ok {
		phone := "unknown"
		if raw, ok := args["phone"]; ok {
			if s := cast.ToString(raw); s != "" {
				phone = s
			}
		}
		countryCode := cast.ToString(args["country_code"])
		return tool + ":" + countryCode + phone
	}

	if raw, ok := args["access_token"]; ok {
		if token := cast.ToString(raw); token != "" {
			if len(token) > 8 {
				token = token[len(token)-8:]
			}
			return tool + ":" + token
		}
	}

	return tool + ":anonymous"
}
