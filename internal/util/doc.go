// Package util provides small helpers shared across the gateway: response
// writer wrappers, JSON responses, and host and path normalisation.
//
//	w := util.NewStatusCapturingResponseWriter(responseWriter)
//	handler.ServeHTTP(w, r)
//	statusCode := w.StatusCode
//
// FoldPath and CleanPath are the single definition of how request paths are
// compared against rule tables; every matcher goes through them.
package util
