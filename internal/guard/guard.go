// Package guard holds in-process protections: a per-key circuit breaker for outbound
// channels and a sliding-window rate limiter for public endpoints.
package guard

import "time"

// Result is the outcome of a guard check.
type Result struct {
	Allowed    bool
	Reason     string
	Guard      string
	RetryAfter time.Duration
}
