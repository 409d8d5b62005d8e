package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const traceIDHeader = "X-Trace-Id"

// InjectTraceID attaches a logger carrying a fresh trace id to ctx.
func InjectTraceID(ctx context.Context) context.Context {
	return withTraceID(ctx, uuid.New().String())
}

func withTraceID(ctx context.Context, id string) context.Context {
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}

// Middleware reuses the caller supplied trace id header when present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(traceIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(traceIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withTraceID(r.Context(), id)))
	})
}
