package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/rollcall/internal/auth"
	"github.com/JonMunkholm/rollcall/internal/config"
	"github.com/JonMunkholm/rollcall/internal/core"
)

// UserIDHeader names the acting user for API-key callers and local development.
const UserIDHeader = "X-User-ID"

// Authenticate resolves the acting user and stores it with core.ContextWithUserID.
//
// Resolution order:
//  1. Authorization: Bearer <jwt>, verified with v. A bad token is always rejected.
//  2. X-API-Key matching one of cfg.APIKeys; the user comes from X-User-ID.
//  3. Nothing: rejected when cfg.Required, otherwise X-User-ID is trusted as is.
//
// An empty user id is allowed through when auth is optional; the import
// rate limiter does not track anonymous callers.
func Authenticate(cfg *config.AuthConfig, v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveUser(w, r, cfg, v)
			if !ok {
				return
			}
			if userID != "" {
				r = r.WithContext(core.ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveUser(w http.ResponseWriter, r *http.Request, cfg *config.AuthConfig, v *auth.Verifier) (string, bool) {
	if token, found := bearerToken(r); found {
		if v == nil {
			authError(w, http.StatusUnauthorized, "bearer tokens are not accepted", "AUTH_NO_VERIFIER")
			return "", false
		}
		claims, err := v.Verify(token)
		if err != nil {
			slog.Warn("auth: invalid token", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", err)
			authError(w, http.StatusUnauthorized, "invalid token", "AUTH_INVALID_TOKEN")
			return "", false
		}
		return claims.UserID(), true
	}

	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		if !isValidAPIKey(apiKey, cfg.APIKeys) {
			slog.Warn("auth: invalid API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			authError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
			return "", false
		}
		return strings.TrimSpace(r.Header.Get(UserIDHeader)), true
	}

	if cfg.Required {
		slog.Warn("auth: missing credentials", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		authError(w, http.StatusUnauthorized, "missing credentials", "AUTH_MISSING")
		return "", false
	}
	return strings.TrimSpace(r.Header.Get(UserIDHeader)), true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func authError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}

// isValidAPIKey checks key against every configured key in constant time,
// so the response time does not reveal which key (if any) matched.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
