package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const contextRequestID = contextKey("RequestID")
const httpHeaderRequestID = "X-Request-Id"

// AddRequestIDAndLogging tags every request with an id (client-provided or
// generated) and injects a request-scoped logger carrying it.
func AddRequestIDAndLogging(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(httpHeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		logger := log.With().Str("requestID", id).Logger()
		ctx := logger.WithContext(r.Context())
		ctx = context.WithValue(ctx, contextRequestID, id)
		logger.Debug().Msgf("r=%v, path=%v", r.RemoteAddr, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}

func CtxGetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextRequestID).(string); ok {
		return id
	}
	return ""
}

func CtxNewWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextRequestID, id)
}

func AddAll(next http.Handler) http.Handler {
	return AddRequestIDAndLogging(next)
}
