package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/overtone-games/lobby/internal/apperr"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken pulls the bearer token from the Authorization header, falling
// back to the auth_token cookie.
func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return extractCookieToken(r.Header.Get("Cookie"), "auth_token")
}

// requestIP resolves the caller's address, honoring the first hop of
// X-Forwarded-For when a proxy sits in front.
func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders an error in the shared taxonomy; anything untyped
// becomes an internal error with a generic message.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	message := apperr.MessageOf(err)
	if message == "" {
		message = "internal error"
	}
	writeJSON(w, code.HTTPStatus(), errorResponse{Code: string(code), Message: message})
}
