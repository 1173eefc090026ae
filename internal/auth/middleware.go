package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Require rejects requests without a valid Bearer token: 401 for invalid or
// missing credentials, 403 for unverified accounts, 500 when verification
// itself is not configured.
func Require(verifier Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		id, err := verifier.Verify(r.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := "AUTH_ERROR"
			switch {
			case errors.Is(err, ErrUnverified):
				status = http.StatusForbidden
			case errors.Is(err, ErrNotConfigured):
				status = http.StatusInternalServerError
				code = "CONFIGURATION_ERROR"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"error": map[string]string{"code": code, "message": err.Error()},
			})
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// Optional attaches an identity when a valid token is present and passes the
// request through anonymously otherwise.
func Optional(verifier Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := verifier.Verify(r.Context(), token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
