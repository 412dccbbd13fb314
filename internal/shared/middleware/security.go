package middleware

import (
	"net"
	"net/http"
	"strings"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// HSTS adds the Strict-Transport-Security header to every response.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", hstsValue)
		next.ServeHTTP(w, r)
	})
}

// SecureCookies forces Secure, HttpOnly and SameSite on every Set-Cookie
// header written by next, so the access token cookie never leaves over
// plain HTTP when TLS is on.
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

func (w *secureCookieWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	header := w.ResponseWriter.Header()
	if cookies := header.Values("Set-Cookie"); len(cookies) > 0 {
		header.Del("Set-Cookie")
		for _, raw := range cookies {
			header.Add("Set-Cookie", secureCookie(raw))
		}
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

// secureCookie returns raw with Secure and HttpOnly set and SameSite
// defaulted to Strict. Headers that do not parse are passed through.
func secureCookie(raw string) string {
	c, err := http.ParseSetCookie(raw)
	if err != nil {
		return raw
	}
	c.Secure = true
	c.HttpOnly = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
	if s := c.String(); s != "" {
		return s
	}
	return raw
}

// StripPort returns host without its port and without IPv6 brackets.
// "[::1]:8080" and "[::1]" both become "::1"; a bare IPv6 literal such as
// "fe80::1%lo0" is returned unchanged.
func StripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		return host[1 : len(host)-1]
	}
	return host
}

// IsHostAllowed reports whether host matches one of allowedHosts, either
// exactly or by hostname with ports ignored. It guards the HTTP to HTTPS
// redirect against Host header poisoning. An empty list allows every host.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	hostname := StripPort(host)

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if host == allowed || hostname == StripPort(allowed) {
			return true
		}
	}

	return false
}
