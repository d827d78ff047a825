package http

import (
	"net/http"

	"playledger/internal/auth"
)

// authenticate rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func authenticate(authn *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := authn.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated", "message": err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}
