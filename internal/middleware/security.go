package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

// Browser hardening headers.
const (
	HeaderXContentTypeOptions = "X-Content-Type-Options"
	HeaderXFrameOptions       = "X-Frame-Options"
	HeaderReferrerPolicy      = "Referrer-Policy"
	HeaderStrictTransport     = "Strict-Transport-Security"
)

// SecurityHeaders returns a middleware adding the browser hardening headers.
// Strict-Transport-Security is only sent on HTTPS requests, including those
// terminated by a proxy that sets X-Forwarded-Proto.
func SecurityHeaders(cfg *config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if cfg == nil || cfg.Disabled {
		return func(next http.Handler) http.Handler { return next }
	}

	frame := strings.ToUpper(cfg.FrameOptions)
	var hsts string
	if maxAge := cfg.HSTSMaxAge.Duration(); maxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(maxAge.Seconds()), 10)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(HeaderXContentTypeOptions, "nosniff")
			if frame != "" {
				h.Set(HeaderXFrameOptions, frame)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set(HeaderReferrerPolicy, cfg.ReferrerPolicy)
			}
			if hsts != "" && isSecureRequest(r) {
				h.Set(HeaderStrictTransport, hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ManagedHeaders lists the response headers the gateway owns. The upstream
// proxy removes them from application responses so they are never
// duplicated or overridden.
func ManagedHeaders(cfg *config.HeadersConfig) []string {
	names := make([]string, 0, 8)
	for name := range DefaultPostureHeaders() {
		names = append(names, name)
	}
	if cfg == nil {
		return names
	}
	for name := range cfg.Posture {
		names = append(names, http.CanonicalHeaderKey(name))
	}
	if !cfg.Security.Disabled {
		names = append(names,
			HeaderXContentTypeOptions, HeaderXFrameOptions,
			HeaderReferrerPolicy, HeaderStrictTransport,
		)
	}
	return names
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
