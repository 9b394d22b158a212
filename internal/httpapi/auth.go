package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// extractAPIKey pulls the client key from the Authorization header
// ("Bearer <key>") or the X-API-Key header.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// AuthMiddleware rejects requests lacking a configured API key with 401.
// When no keys are configured it is a pass-through. Health probes and
// metrics stay open so orchestrators can reach them without credentials.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(apiKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		key := extractAPIKey(r)
		if key == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing API key")
			return
		}
		for _, k := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid API key")
	})
}
