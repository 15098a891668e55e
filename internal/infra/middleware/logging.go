package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"whistlemcp/internal/infra/telemetry"
)

// Logging assigns a request id to each tool call and records entry,
// outcome and duration. It sits outermost so rejections from the inner
// pipeline stages are measured too.
func Logging(metrics telemetry.Metrics, logger *zap.Logger) mcp.Middleware {
	logger = logger.Named("toolcall")
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ct, ok := callRequest(req)
			if method != "tools/call" || !ok {
				return next(ctx, method, req)
			}

			tool := ct.Params.Name
			meta := telemetry.RequestMeta{RequestID: telemetry.NewRequestID(), Tool: tool}
			ctx = telemetry.WithRequestMeta(ctx, meta)

			args := decodeArguments(ct)
			_, hasToken := args["access_token"]
			logger.Info("tool call started",
				zap.String("request_id", meta.RequestID),
				zap.String("tool", tool),
				zap.Any("arguments", sanitizeArguments(args)),
				zap.Bool("has_auth_token", hasToken),
			)

			start := time.Now()
			res, err := next(ctx, method, req)
			duration := time.Since(start)

			status := "ok"
			if err != nil {
				status = "error"
			} else if tr, ok := res.(*mcp.CallToolResult); ok && tr.IsError {
				status = "tool_error"
			}
			metrics.ObserveToolCall(tool, status, duration)

			if err != nil {
				logger.Error("tool call failed",
					zap.String("request_id", meta.RequestID),
					zap.String("tool", tool),
					zap.Duration("duration", duration),
					zap.Error(err),
				)
				return res, err
			}

			logger.Info("tool call finished",
				zap.String("request_id", meta.RequestID),
				zap.String("tool", tool),
				zap.String("status", status),
				zap.Duration("duration", duration),
			)
			return res, nil
		}
	}
}

// sanitizeArguments masks credential and contact values before they hit
// the log stream.
func sanitizeArguments(args map[string]any) map[string]any {
	sanitized := make(map[string]any, len(args))
	for key, value := range args {
		lower := strings.ToLower(key)
		str, isString := value.(string)
		switch {
		case strings.Contains(lower, "otp"):
			sanitized[key] = "***"
		case strings.Contains(lower, "token"):
			if isString && len(str) > 4 {
				sanitized[key] = "***" + str[len(str)-4:]
			} else {
				sanitized[key] = "***"
			}
		case strings.Contains(lower, "phone"):
			if isString && len(str) > 4 {
				sanitized[key] = str[:2] + "***" + str[len(str)-2:]
			} else {
				sanitized[key] = "***"
			}
		default:
			sanitized[key] = value
		}
	}
	return sanitized
}
