// Package middleware provides the HTTP middleware that wraps the edgegate
// request pipeline.
//
// These components sit outside the compliance and tenancy chain and carry
// the cross-cutting concerns of the public listener:
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Recovery: turns panics into a JSON 500
//   - Logging: structured access log
//   - Posture: platform posture headers on every response
//   - RateLimit: per-client token bucket
//   - ClientIPExtractor: trusted proxy aware client address
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger, ips)(pipeline),
//	    ),
//	)
package middleware
