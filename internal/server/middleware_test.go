package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/handlers"
)

func newTestServer() *Server {
	return &Server{logger: common.NewSilentLogger()}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- Correlation ID Middleware ---

func TestCorrelationIDMiddleware(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"generated", "", ""},
		{"request id", "X-Request-ID", "req-123"},
		{"correlation id", "X-Correlation-ID", "corr-456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := s.correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = r.Context().Value(correlationIDKey).(string)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("X-Correlation-ID")
			if got == "" || got != seen {
				t.Fatalf("expected response header %q to match context value %q", got, seen)
			}
			if tt.value != "" && got != tt.value {
				t.Errorf("expected %s, got %s", tt.value, got)
			}
		})
	}
}

// --- CORS Middleware ---

func TestCORSMiddleware_HandlesPreflight(t *testing.T) {
	s := newTestServer()

	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for OPTIONS preflight")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/analyze", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected Access-Control-Allow-Origin=*")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Error("expected DELETE in allowed methods")
	}
}

// --- Recovery and logging ---

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	s := newTestServer()

	handler := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 after panic, got %d", w.Code)
	}
}

func TestLoggingMiddleware_PreservesStatus(t *testing.T) {
	s := newTestServer()

	for _, code := range []int{http.StatusCreated, http.StatusNotFound, http.StatusBadGateway} {
		handler := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.Write([]byte("body"))
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/test", nil))
		if w.Code != code {
			t.Errorf("expected status %d, got %d", code, w.Code)
		}
	}
}

func TestResponseWriter_CapturesBytes(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	rw.Write([]byte("hello "))
	rw.Write([]byte("world"))
	if rw.bytesWritten != 11 {
		t.Errorf("expected bytesWritten=11, got %d", rw.bytesWritten)
	}
}

// --- Security Headers Middleware ---

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.securityHeadersMiddleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("expected %s=%s, got %s", header, value, got)
		}
	}
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("expected CSP to restrict default-src to self")
	}
}

// --- Max Body Size Middleware ---

func TestMaxBodySizeMiddleware_RejectsOversizedBody(t *testing.T) {
	s := newTestServer()

	var readErr error
	handler := s.maxBodySizeMiddleware(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest("POST", "/settings", strings.NewReader(strings.Repeat("x", 100)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("expected error reading oversized body")
	}
}

func TestMaxBodySizeMiddleware_AnalyzeGetsUploadLimit(t *testing.T) {
	s := newTestServer()

	var n int
	var readErr error
	handler := s.maxBodySizeMiddleware(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		n, readErr = len(b), err
	}))

	body := strings.Repeat("x", 4096)
	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr != nil || n != len(body) {
		t.Errorf("expected full upload body under %d byte limit, read %d (%v)", handlers.MaxUploadBody, n, readErr)
	}
}

// --- CSRF Middleware ---

func TestCSRFMiddleware_SafeMethodsPass(t *testing.T) {
	s := newTestServer()
	handler := s.csrfMiddleware(okHandler())

	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, "/settings", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200 for %s without token, got %d", method, w.Code)
		}
	}
}

func TestCSRFMiddleware_RejectsUnsafeWithoutToken(t *testing.T) {
	s := newTestServer()
	handler := s.csrfMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without CSRF token")
	}))

	for _, method := range []string{"POST", "PUT", "DELETE"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, "/settings", nil))
		if w.Code != http.StatusForbidden {
			t.Errorf("expected status 403 for %s without token, got %d", method, w.Code)
		}
	}
}

func TestCSRFMiddleware_AcceptsHeaderToken(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/settings", nil)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: "token-1"})
	req.Header.Set("X-CSRF-Token", "token-1")
	w := httptest.NewRecorder()
	s.csrfMiddleware(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 with matching header token, got %d", w.Code)
	}
}

func TestCSRFMiddleware_AcceptsFormToken(t *testing.T) {
	s := newTestServer()

	form := url.Values{"_csrf": {"token-2"}, "budget_limit": {"5"}}
	req := httptest.NewRequest("POST", "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: "token-2"})

	var budget string
	handler := s.csrfMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		budget = r.FormValue("budget_limit")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 with matching form token, got %d", w.Code)
	}
	if budget != "5" {
		t.Errorf("expected form to remain readable, got budget_limit=%q", budget)
	}
}

func TestCSRFMiddleware_RejectsMismatchedToken(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/settings", nil)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: "cookie-token"})
	req.Header.Set("X-CSRF-Token", "different-token")
	w := httptest.NewRecorder()
	s.csrfMiddleware(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for mismatched tokens, got %d", w.Code)
	}
}

func TestCSRFMiddleware_SkipsJSONEndpoints(t *testing.T) {
	s := newTestServer()
	handler := s.csrfMiddleware(okHandler())

	for _, path := range []string{"/api/analyze", "/api/history", "/mcp"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected CSRF bypass for %s, got %d", path, w.Code)
		}
	}
}

func TestCSRFMiddleware_SetsCookieOnGET(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.csrfMiddleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	for _, c := range w.Result().Cookies() {
		if c.Name == "_csrf" {
			if c.HttpOnly {
				t.Error("CSRF cookie should not be HttpOnly")
			}
			if c.Value == "" {
				t.Error("CSRF cookie value should not be empty")
			}
			return
		}
	}
	t.Error("expected _csrf cookie to be set on GET response")
}
