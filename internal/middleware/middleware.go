// Package middleware holds the Echo middleware and the error translator.
//
// Global middleware covers CORS, request IDs, tracing, logging and panic
// recovery. Endpoint middleware runs inside the routing table: auth methods,
// rate limiting and the request transaction.
package middleware
