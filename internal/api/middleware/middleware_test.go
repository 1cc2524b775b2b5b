package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*charmlog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := charmlog.NewWithOptions(buf, charmlog.Options{Formatter: charmlog.LogfmtFormatter})
	return logger, buf
}

func TestRequestID_GeneratesID(t *testing.T) {
	logger, _ := bufferLogger()

	var captured string
	handler := RequestID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))

	require.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsIncomingID(t *testing.T) {
	logger, buf := bufferLogger()

	handler := RequestID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("inside handler")
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "request_id=req-42")
}

func TestGetRequestID_MissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", GetRequestID(req.Context()))
}

func TestAccessLog_LevelsByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"ok", http.StatusOK, "info"},
		{"client error", http.StatusBadRequest, "warn"},
		{"server error", http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			}))

			req := httptest.NewRequest(http.MethodPost, "/chat", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			line := buf.String()
			assert.Contains(t, line, "level="+tt.level)
			assert.Contains(t, line, "method=POST")
			assert.Contains(t, line, "path=/chat")
			assert.Contains(t, line, "bytes=4")
			assert.Contains(t, line, "remote_addr=203.0.113.7")
		})
	}
}

func TestAccessLog_DefaultStatus(t *testing.T) {
	logger, buf := bufferLogger()
	handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Contains(t, buf.String(), "status=200")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestSentryMiddleware_PassesThroughWithoutClient(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, sentry.GetHubFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestSentryMiddleware_RepanicsAfterRecovery(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected sentry.SpanStatus
	}{
		{200, sentry.SpanStatusOK},
		{400, sentry.SpanStatusInvalidArgument},
		{404, sentry.SpanStatusNotFound},
		{405, sentry.SpanStatusUnimplemented},
		{429, sentry.SpanStatusResourceExhausted},
		{500, sentry.SpanStatusInternalError},
		{504, sentry.SpanStatusDeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(http.StatusText(tt.status), " ", "_"), func(t *testing.T) {
			assert.Equal(t, tt.expected, httpStatusToSpanStatus(tt.status))
		})
	}
}
