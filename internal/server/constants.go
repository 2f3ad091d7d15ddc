// Package server provides the HTTP API and WebSocket display feed
package server

import "time"

// Server configuration constants
const (
	// Per-connection control message rate limiting
	RateLimitMessages = 10
	RateLimitWindow   = time.Second
)
