// Package retry runs an operation with exponential backoff and jitter.
//
// It is used off the request path only; request handling never retries.
package retry
