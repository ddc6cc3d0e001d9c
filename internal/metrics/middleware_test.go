package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/products/{productID}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, id := range []string{"RUN-001", "APP-007"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/"+id, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	}

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/products/{productID}", "200"))
	if val < 2 {
		t.Errorf("expected both requests under one route label, got %f", val)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	tests := []struct {
		target string
		status string
	}{
		{"/api/chat", "201"},
		{"/api/chat?fail=1", "502"},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tc.target, http.NoBody))

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/chat", tc.status))
			if val < 1 {
				t.Errorf("expected requests_total with status %s >= 1, got %f", tc.status, val)
			}
		})
	}
}

func TestMiddleware_PassesFlush(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	flushed := false
	r.Get("/api/activity/stream", func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer does not implement http.Flusher")
		}
		_, _ = w.Write([]byte("data: {}\n\n"))
		f.Flush()
		flushed = true
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/activity/stream", http.NoBody))
	if !flushed || !rr.Flushed {
		t.Error("expected flush to reach the recorder")
	}
}

func TestMiddleware_StreamSkipsHistogram(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/activity/stream-check", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": connected\n\n"))
	})

	before := testutil.CollectAndCount(httpRequestDuration)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/activity/stream-check", http.NoBody))

	if testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/activity/stream-check", "200")) != 1 {
		t.Error("stream request not counted")
	}
	if after := testutil.CollectAndCount(httpRequestDuration); after != before {
		t.Errorf("stream request added a histogram series: %d -> %d", before, after)
	}
}

func TestMiddleware_WithoutRouter(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw", http.NoBody))

	if testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "418")) < 1 {
		t.Error("request outside a chi router should be labelled unknown")
	}
}

func TestNormalizePath(t *testing.T) {
	if normalizePath("") != "unknown" {
		t.Error("empty route should be labelled unknown")
	}
	if normalizePath("/api/chat") != "/api/chat" {
		t.Error("route pattern should pass through")
	}
}

func TestStatus(t *testing.T) {
	if Status(nil) != "ok" || Status(errors.New("x")) != "error" {
		t.Error("unexpected status labels")
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	RankingFallbackTotal.WithLabelValues("embed").Inc()
	if testutil.ToFloat64(RankingFallbackTotal.WithLabelValues("embed")) < 1 {
		t.Error("fallback counter not incremented")
	}
}
