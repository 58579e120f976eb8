package reqctx

import "context"

type ctxKey string

const keyRID ctxKey = "request_id"

// WithRequestID stores the correlation id used in service logs.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RequestID returns correlation id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}
