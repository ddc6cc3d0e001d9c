package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"client error", http.StatusNotFound, zapcore.WarnLevel},
		{"upstream error", http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			var inner int
			h := chiMiddleware.RequestID(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.FromContext(r.Context()).Debug("inside")
				inner++
				w.WriteHeader(tt.status)
			})))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/search?q=x", http.NoBody))

			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
			entries := logs.All()
			if inner != 1 || len(entries) != 2 {
				t.Fatalf("got %d entries", len(entries))
			}
			if entries[0].ContextMap()["request_id"] == "" {
				t.Error("handler logger is not tagged with request_id")
			}
			last := entries[1]
			if last.Message != "http_request" || last.Level != tt.level {
				t.Errorf("got %s at %s, want %s", last.Message, last.Level, tt.level)
			}
			if last.ContextMap()["status"] != int64(tt.status) {
				t.Errorf("status field = %v", last.ContextMap()["status"])
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	body := decode[errorResponse](t, rr)
	if body.Code != CodeInternalError {
		t.Errorf("code = %q", body.Code)
	}
}
