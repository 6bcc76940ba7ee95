package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestClientIP(t *testing.T) {
	t.Run("direct_connection", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.4:52110"
		if got := clientIP(req); got != "198.51.100.4" {
			t.Fatalf("clientIP() = %q, want 198.51.100.4", got)
		}
	})

	t.Run("behind_trusted_proxy", func(t *testing.T) {
		var got string
		handler := middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = clientIP(r)
		}))

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:44321"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if got != "203.0.113.7" {
			t.Fatalf("clientIP() behind proxy = %q, want the forwarded client 203.0.113.7", got)
		}
	})

	t.Run("proxy_without_forwarded_header", func(t *testing.T) {
		var got string
		handler := middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = clientIP(r)
		}))

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:44321"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if got != "10.0.0.1" {
			t.Fatalf("clientIP() = %q, want the socket address 10.0.0.1", got)
		}
	})
}
