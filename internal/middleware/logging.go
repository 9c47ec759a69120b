package middleware

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Logging returns a middleware that writes one access log line per request.
// Server errors log at error level and client errors at warn.
func Logging(logger observability.Logger, ips *ClientIPExtractor) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if ips == nil {
		ips = NewClientIPExtractor(nil)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("host", r.Host),
				observability.Int("status", rw.StatusCode),
				observability.Int("size", rw.BytesWritten),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", ips.Extract(r)),
				observability.String("user_agent", r.UserAgent()),
				observability.String("route_class", observability.RouteClassFromContext(r.Context())),
				observability.String("request_id", observability.RequestIDFromContext(r.Context())),
			}

			switch {
			case rw.StatusCode >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case rw.StatusCode >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}
