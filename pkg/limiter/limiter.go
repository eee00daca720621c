// Package limiter decides whether a client may make another request within
// its rate window.
package limiter

import (
	"context"
	"time"
)

// Result describes one rate limit decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetIn is how long until the client regains capacity.
	ResetIn time.Duration
}

// Limiter consumes one unit of capacity for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
