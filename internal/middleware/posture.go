package middleware

import (
	"net/http"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

// DefaultPostureHeaders advertise that the platform is software only and
// never processes payments.
func DefaultPostureHeaders() map[string]string {
	return map[string]string{
		HeaderPlatformType:      "Software-Only",
		HeaderPaymentProcessing: "Disabled",
		HeaderComplianceMode:    "Strict",
	}
}

// Posture returns a middleware that sets the posture headers on every
// response, including rejections written further down the chain. Extra
// headers from cfg are added; they cannot override the defaults.
func Posture(cfg *config.HeadersConfig) func(http.Handler) http.Handler {
	headers := make(map[string]string)
	if cfg != nil {
		for k, v := range cfg.Posture {
			headers[http.CanonicalHeaderKey(k)] = v
		}
	}
	for k, v := range DefaultPostureHeaders() {
		headers[k] = v
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
