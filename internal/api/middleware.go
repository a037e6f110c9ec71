package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuthMiddleware gates the API behind a set of static bearer tokens.
// Comparison is constant-time per token so response timing does not leak
// prefix matches.
func TokenAuthMiddleware(tokens []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, "Unauthorized: missing Bearer token", http.StatusUnauthorized)
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		ok := false
		for _, t := range tokens {
			if len(t) == len(presented) && subtle.ConstantTimeCompare([]byte(t), []byte(presented)) == 1 {
				ok = true
			}
		}
		if !ok {
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
