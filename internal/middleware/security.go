package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure bool
}

// NewSecurityHeadersMiddleware creates a new security headers middleware.
// isSecure enables HSTS.
func NewSecurityHeadersMiddleware(isSecure bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
	}
}

// Handler returns middleware that sets security headers on all responses.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		h.Set("Content-Security-Policy", buildCSP(isPrintView(r.URL.Path)))

		next.ServeHTTP(w, r)
	})
}

// isPrintView reports whether path serves the printable HTML report.
func isPrintView(path string) bool {
	return strings.HasSuffix(path, "/print")
}

// buildCSP returns the Content-Security-Policy header value. JSON responses
// get a locked-down policy; the print view needs its embedded stylesheet.
func buildCSP(printView bool) string {
	if !printView {
		return "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	}
	return "default-src 'none'; " +
		"style-src 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"frame-ancestors 'none'; " +
		"base-uri 'none'; " +
		"form-action 'none'"
}
