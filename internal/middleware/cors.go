// Package middleware holds the HTTP middleware shared by the API and the chat page.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, OPTIONS"
	corsAllowHeaders = "Content-Type, X-Chat-Session-ID"
)

// AllowedOrigins returns the CORS origins for a deployment: any origin in
// development, otherwise only the configured frontend.
func AllowedOrigins(frontendURL string, isDev bool) []string {
	if isDev {
		return []string{"*"}
	}
	frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if frontendURL == "" {
		return nil
	}
	return []string{frontendURL}
}

// CORS answers cross-origin requests from the allowed origins. "*" admits any
// origin but never with credentials. Preflights from other origins get 403;
// plain requests from them pass through without CORS headers, so the browser
// withholds the response.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	explicit := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		explicit[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			allowed := origin != "" && (wildcard || explicit[origin])
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				if explicit[origin] {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				if origin != "" && !allowed {
					slog.Warn("CORS preflight rejected", "origin", origin)
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
