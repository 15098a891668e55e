package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const RequestIDHeader = "x-request-id"

type requestContextKey struct{}

type headerContextKey struct{}

// RequestMeta identifies one inbound tool call across log lines.
type RequestMeta struct {
	RequestID string
	Tool      string
}

func (m RequestMeta) IsZero() bool {
	return m.RequestID == "" && m.Tool == ""
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if meta.IsZero() {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func NewRequestID() string {
	return uuid.NewString()
}

// WithHeaders stashes the inbound HTTP headers so call middleware can read
// transport-level auth; stdio transport leaves this unset.
func WithHeaders(ctx context.Context, header http.Header) context.Context {
	if header == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, headerContextKey{}, header)
}

func HeadersFromContext(ctx context.Context) (http.Header, bool) {
	if ctx == nil {
		return nil, false
	}
	header, ok := ctx.Value(headerContextKey{}).(http.Header)
	return header, ok && header != nil
}
