package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type sessionKey struct{}

// SessionUser pulls the requesting user's id out of the context, when the
// caller presented a valid session token. Anonymous callers return ("", false).
func SessionUser(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionKey{}).(string)
	return v, ok && v != ""
}

// Session verifies a bearer token issued by the external session provider
// (HS256, shared secret) and stashes the subject claim as the requesting
// user id. Token issuance is not this service's job: a missing or invalid
// token just means an anonymous caller, never a rejected request.
func Session(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth provides simple bearer-key authentication for the admin API.
func AdminAuth(apiKey string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			if bearerToken(r) != apiKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
