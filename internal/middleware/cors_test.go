package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doRequest(t *testing.T, origins []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	handler := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, reached
}

func TestCORSWildcard(t *testing.T) {
	w, reached := doRequest(t, []string{"*"}, http.MethodGet, "https://example.com")
	if !reached {
		t.Error("Expected the request to reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Expected origin to be echoed, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("Wildcard origins must not allow credentials")
	}
}

func TestCORSExplicitOriginAllowsCredentials(t *testing.T) {
	w, _ := doRequest(t, []string{"https://app.example.com"}, http.MethodGet, "https://app.example.com")
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected credentials for an explicitly allowed origin")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	w, reached := doRequest(t, []string{"https://app.example.com"}, http.MethodGet, "https://evil.example.com")
	if !reached {
		t.Error("Expected the request to still reach the handler")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no CORS headers for a disallowed origin")
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w, reached := doRequest(t, []string{"*"}, http.MethodOptions, "https://example.com")
	if reached {
		t.Error("Expected preflight to stop at the middleware")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 preflight, got %d", w.Code)
	}
}
