package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Recovery returns a middleware that recovers from panics. The client gets
// a JSON 500 unless the handler already started its response.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := util.NewStatusCapturingResponseWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}

				logger.Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.String("request_id", observability.RequestIDFromContext(r.Context())),
					observability.Any("error", rec),
					observability.String("stack", string(debug.Stack())),
				)
				GetMetrics().panicsRecovered.Inc()

				if rw.HeaderWritten {
					return
				}
				util.WriteJSON(rw, http.StatusInternalServerError, map[string]string{"error": codeInternalError})
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
