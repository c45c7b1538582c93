package ratelimit

import (
	"context"
	"time"
)

// Window caps the number of requests inside a sliding duration.
type Window struct {
	Duration time.Duration
	Limit    int
}

// PerMinute is a convenience for the common single-window policy.
func PerMinute(limit int) []Window {
	return []Window{{Duration: time.Minute, Limit: limit}}
}

// Decision is the outcome of one Allow call. Limit and Remaining describe
// the tightest window.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, windows []Window) (Decision, error)
	Reset(ctx context.Context, key string) error
}
