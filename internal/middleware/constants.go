package middleware

// HTTP header names.
const (
	HeaderContentType   = "Content-Type"
	HeaderRetryAfter    = "Retry-After"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
)

// Platform posture headers present on every response.
const (
	HeaderPlatformType      = "X-Platform-Type"
	HeaderPaymentProcessing = "X-Payment-Processing"
	HeaderComplianceMode    = "X-Compliance-Mode"
)

// Error codes written in JSON error bodies.
const (
	codeInternalError     = "internal_error"
	codeRateLimitExceeded = "rate_limit_exceeded"
)
