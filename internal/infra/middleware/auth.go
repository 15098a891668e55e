package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/telemetry"
)

// AuthGate refuses protected tool calls that carry no bearer credential.
// The Authorization header wins over the access_token argument; the
// accepted credential keeps its "Bearer " prefix and is injected into
// the arguments so handlers forward it verbatim. An X-User-Id header is
// injected the same way when the arguments lack a user_id.
func AuthGate(metrics telemetry.Metrics, logger *zap.Logger) mcp.Middleware {
	logger = logger.Named("auth")
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ct, ok := callRequest(req)
			if method != "tools/call" || !ok {
				return next(ctx, method, req)
			}

			tool := ct.Params.Name
			if !domain.IsProtectedTool(tool) {
				return next(ctx, method, req)
			}

			args := decodeArguments(ct)
			token := headerToken(ctx)
			if token == "" {
				token = argToken(args)
			}
			if !isBearer(token) {
				metrics.ObserveAuthRejected(tool)
				logger.Warn("protected tool called without valid credential",
					zap.String("tool", tool))
				return rejection(domain.E(domain.CodeUnauthenticated, "auth.gate",
					domain.ProtectedToolErrMessage, nil)), nil
			}

			logger.Info("credential accepted",
				zap.String("tool", tool),
				zap.String("token_suffix", tokenSuffix(token)))

			// Re-encode only when a header supplied a value the
			// arguments lack; explicit arguments pass untouched.
			mutated := false
			if argToken(args) == "" {
				args["access_token"] = token
				mutated = true
			}
			if userID := headerUserID(ctx); userID != "" {
				if _, present := args["user_id"]; !present {
					args["user_id"] = userID
					mutated = true
				}
			}
			if mutated {
				if raw, err := json.Marshal(args); err == nil {
					ct.Params.Arguments = raw
				}
			}

			return next(ctx, method, req)
		}
	}
}

func isBearer(token string) bool {
	return strings.HasPrefix(strings.ToLower(token), "bearer ")
}

func headerToken(ctx context.Context) string {
	headers, ok := telemetry.HeadersFromContext(ctx)
	if !ok {
		return ""
	}
	value := strings.TrimSpace(headers.Get("Authorization"))
	if !isBearer(value) {
		return ""
	}
	return value
}

func headerUserID(ctx context.Context) string {
	headers, ok := telemetry.HeadersFromContext(ctx)
	if !ok {
		return ""
	}
	return strings.TrimSpace(headers.Get("X-User-Id"))
}

func argToken(args map[string]any) string {
	raw, ok := args["access_token"]
	if !ok {
		return ""
	}
	token, _ := raw.(string)
	return strings.TrimSpace(token)
}

func tokenSuffix(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return "***" + token[len(token)-4:]
}
