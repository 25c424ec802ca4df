package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
)

// APIKeyMiddleware requires an X-API-Key header when a key is configured.
// An empty configured key disables the check entirely. Public paths (exact
// match, or prefix match for entries ending with *) always pass.
func APIKeyMiddleware(apiKey string, publicPaths []string) func(http.Handler) http.Handler {
	publicPathMap := make(map[string]bool)
	for _, path := range publicPaths {
		publicPathMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			path := r.URL.Path
			isPublic := publicPathMap[path]
			if !isPublic {
				for publicPath := range publicPathMap {
					if strings.HasSuffix(publicPath, "*") &&
						strings.HasPrefix(path, strings.TrimSuffix(publicPath, "*")) {
						isPublic = true
						break
					}
				}
			}
			if isPublic {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`))
				return
			}
			if providedKey != apiKey {
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Invalid API key","message":"The provided API key is not valid"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
