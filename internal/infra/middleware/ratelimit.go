package middleware

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"whistlemcp/internal/domain"
	"whistlemcp/internal/infra/ratelimit"
	"whistlemcp/internal/infra/telemetry"
)

// RateLimit enforces the per-tool request budgets. It runs after the
// auth gate, so unauthenticated calls never consume quota.
func RateLimit(limiter *ratelimit.Limiter, metrics telemetry.Metrics, logger *zap.Logger) mcp.Middleware {
	logger = logger.Named("ratelimit")
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ct, ok := callRequest(req)
			if method != "tools/call" || !ok || limiter == nil {
				return next(ctx, method, req)
			}

			tool := ct.Params.Name
			key := ratelimit.KeyFor(tool, decodeArguments(ct))
			if err := limiter.Allow(ctx, tool, key); err != nil {
				metrics.ObserveRateLimited(tool)
				logger.Warn("rate limit exceeded",
					zap.String("tool", tool),
					zap.Int("limit", domain.RateLimitFor(tool)),
				)
				return rejection(err), nil
			}

			return next(ctx, method, req)
		}
	}
}
