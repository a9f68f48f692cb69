package middleware

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestAddRequestIDAndLogging(t *testing.T) {
	called := false
	next := http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, "abc-123", CtxGetRequestID(r.Context()), "request id should be set as context key")
			log.Ctx(r.Context()).Info().Msgf("AAA: headers=%v", r.Header)
		},
	)
	handler := AddRequestIDAndLogging(next)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "idk", nil)
	req.Header.Add("X-Request-Id", "abc-123")
	handler.ServeHTTP(nil, req)
	assert.True(t, called, "middleware handler must call next handler")
}

func TestAddRequestIDAndLogging_generatesID(t *testing.T) {
	next := http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, CtxGetRequestID(r.Context()), "request id should be generated when missing")
		},
	)
	handler := AddRequestIDAndLogging(next)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "idk", nil)
	handler.ServeHTTP(nil, req)
}

func TestCtxGetRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextKey("a"), "c")
	assert.Equal(t, "", CtxGetRequestID(ctx), "request id key not found")
	ctx = CtxNewWithRequestID(context.Background(), "b")
	assert.Equal(t, "b", CtxGetRequestID(ctx), "valid")
	ctx = context.WithValue(context.Background(), contextRequestID, []string{"a"})
	assert.Equal(t, "", CtxGetRequestID(ctx), "invalid type in correct key")
}

func TestAddAll(t *testing.T) {
	logBuffer := bytes.NewBuffer([]byte{})
	log.Logger = zerolog.New(logBuffer).Level(zerolog.DebugLevel).With().Str("test", "test").Logger()
	next := http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "req-1", CtxGetRequestID(r.Context()), "request id should be in context")
			log.Ctx(r.Context()).Info().Msg("AAA")
		},
	)
	handler := AddAll(next)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "idk", nil)
	req.Header.Add("X-Request-Id", "req-1")
	handler.ServeHTTP(nil, req)
	assert.Contains(t, logBuffer.String(), `AAA`)
	assert.Contains(t, logBuffer.String(), `"requestID":"req-1"`)
}
