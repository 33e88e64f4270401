// Package observability builds the zap logger used across the service.
//
// Log lines for a request carry the request_id field set by the middleware
// package. API keys and image payloads are never logged.
package observability
