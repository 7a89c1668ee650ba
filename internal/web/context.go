package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/rollcall/internal/core"
)

// clientIP returns the IP resolved by TrustedRealIP, falling back to the
// connection address.
func clientIP(r *http.Request) string {
	if ip := core.IPAddressFromContext(r.Context()); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// userID returns the acting user resolved by the auth middleware.
func userID(r *http.Request) string {
	return core.UserIDFromContext(r.Context())
}
