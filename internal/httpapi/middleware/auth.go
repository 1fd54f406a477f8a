package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// presentedToken returns the credential from an "Authorization: Bearer"
// header, falling back to X-API-Key.
func presentedToken(r *http.Request) string {
	if scheme, cred, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(cred)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

type tokenSet [][]byte

func newTokenSet(tokens []string) tokenSet {
	set := make(tokenSet, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set = append(set, []byte(t))
		}
	}
	return set
}

func (s tokenSet) contains(given string) bool {
	if given == "" {
		return false
	}
	g := []byte(given)
	found := 0
	// no early exit: every configured token is compared
	for _, t := range s {
		found |= subtle.ConstantTimeCompare(t, g)
	}
	return found == 1
}

// RequireToken lets a request through only if it presents one of tokens,
// which is what Prometheus sends for a scrape config with `authorization`.
// With no tokens configured every request is let through.
func RequireToken(tokens []string) func(http.Handler) http.Handler {
	set := newTokenSet(tokens)
	return func(next http.Handler) http.Handler {
		if len(set) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !set.contains(presentedToken(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="pingprobe"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or unknown scrape token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
