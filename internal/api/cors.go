package api

import "net/http"

// DefaultOrigin is the client origin allowed when none is configured.
const DefaultOrigin = "http://localhost:3000"

// CORS allows cross-origin calls from exactly one origin. Preflight requests
// are answered directly with 204.
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = DefaultOrigin
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			if r.Header.Get("Origin") == origin {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
