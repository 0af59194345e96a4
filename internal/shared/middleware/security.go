package middleware

import (
	"net"
	"net/http"
	"strings"
)

// HSTS adds the Strict-Transport-Security header: one year, including
// subdomains.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// SecureCookies rewrites every outgoing Set-Cookie so it carries Secure,
// HttpOnly and a SameSite attribute, whatever the handler set.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&secureCookieWriter{ResponseWriter: w}, r)
	})
}

type secureCookieWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *secureCookieWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// WriteHeader rewrites the accumulated Set-Cookie headers just before they
// go out; cookies set after the first WriteHeader would be lost anyway.
func (w *secureCookieWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.ResponseWriter.Header()
	if cookies := h["Set-Cookie"]; len(cookies) > 0 {
		h.Del("Set-Cookie")
		for _, c := range cookies {
			h.Add("Set-Cookie", hardenCookie(c))
		}
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

// hardenCookie appends Secure, HttpOnly and SameSite=Strict unless the
// cookie already carries them.
func hardenCookie(cookie string) string {
	parts := strings.Split(cookie, ";")

	var hasSecure, hasHTTPOnly, hasSameSite bool
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch lower := strings.ToLower(p); {
		case lower == "secure":
			hasSecure = true
		case lower == "httponly":
			hasHTTPOnly = true
		case strings.HasPrefix(lower, "samesite"):
			hasSameSite = true
		}
		parts[i] = p
	}

	if !hasSecure {
		parts = append(parts, "Secure")
	}
	if !hasHTTPOnly {
		parts = append(parts, "HttpOnly")
	}
	if !hasSameSite {
		parts = append(parts, "SameSite=Strict")
	}

	return strings.Join(parts, "; ")
}

// IsHostAllowed validates a host against the allowed hosts list, guarding
// the HTTP-to-HTTPS redirect against redirect poisoning. An empty list
// allows every host. Ports are ignored on both sides of the comparison.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		hostname = host
	}

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		allowedHostname := allowed
		if idx := strings.Index(allowed, ":"); idx != -1 {
			allowedHostname = allowed[:idx]
		}

		if host == allowed || hostname == allowedHostname {
			return true
		}
	}

	return false
}
