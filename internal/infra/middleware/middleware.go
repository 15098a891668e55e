// Package middleware implements the receiving-side pipeline that wraps
// every tool call: request logging, the authentication gate for
// protected tools, and per-tool rate limiting. Order matters: logging is
// outermost so every outcome is recorded, authentication runs before
// rate limiting so rejected credentials never consume quota.
package middleware

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/ratelimit"
	"whistlemcp/internal/infra/telemetry"
)

// Install attaches the pipeline to a server in execution order.
func Install(server *mcp.Server, limiter *ratelimit.Limiter, metrics telemetry.Metrics, logger *zap.Logger) {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Receiving middleware wraps outermost-first.
	server.AddReceivingMiddleware(Logging(metrics, logger))
	server.AddReceivingMiddleware(AuthGate(metrics, logger))
	server.AddReceivingMiddleware(RateLimit(limiter, metrics, logger))
}

func callRequest(req mcp.Request) (*mcp.CallToolRequest, bool) {
	ct, ok := req.(*mcp.CallToolRequest)
	return ct, ok
}

func decodeArguments(req *mcp.CallToolRequest) map[string]any {
	args := map[string]any{}
	if len(req.Params.Arguments) > 0 {
		// A decode failure here is left for the handler to report.
		_ = json.Unmarshal(req.Params.Arguments, &args)
	}
	return args
}

// rejection renders a pipeline refusal as a structured tool result, so
// callers see the same envelope for middleware and handler failures.
func rejection(err error) *mcp.CallToolResult {
	code, ok := domain.CodeFrom(err)
	if !ok {
		code = domain.CodeInternal
	}
	body := map[string]any{
		"success": false,
		"code":    string(code),
		"error":   domain.MessageFrom(err),
	}
	text := ""
	if raw, marshalErr := json.Marshal(body); marshalErr == nil {
		text = string(raw)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: body,
		IsError:           true,
	}
}
