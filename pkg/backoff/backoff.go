package backoff

import (
	"math"
	"time"
)

// Strategy computes the delay to wait before reconnection attempt n (n >= 1)
// and bounds how many attempts are made. The two transports carry different
// observed retry semantics, so each gets its own named strategy; they are
// configured independently and never merged.
type Strategy interface {
	// Delay returns the wait before attempt n. n is 1-based.
	Delay(attempt int) time.Duration
	// ShouldRetry reports whether attempt n may be scheduled at all.
	ShouldRetry(attempt int) bool
}

// Exponential doubles the delay on every attempt, capped at Max. Used by the
// presence-channel connection manager: 1s, 2s, 4s, ... capped at 30s.
type Exponential struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultExponential returns the presence-channel policy.
func DefaultExponential() Exponential {
	return Exponential{
		Base:        1 * time.Second,
		Max:         30 * time.Second,
		MaxAttempts: 5,
	}
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(e.Base) * math.Pow(2, float64(attempt-1))
	if d > float64(e.Max) {
		d = float64(e.Max)
	}
	return time.Duration(d)
}

func (e Exponential) ShouldRetry(attempt int) bool {
	return attempt <= e.MaxAttempts
}

// Linear grows the delay by a fixed step per attempt with no cap. Used by
// the application-level metrics WebSocket: 3s, 6s, 9s, ... up to 10 attempts.
type Linear struct {
	Step        time.Duration
	MaxAttempts int
}

// DefaultLinear returns the metrics-WebSocket policy.
func DefaultLinear() Linear {
	return Linear{
		Step:        3 * time.Second,
		MaxAttempts: 10,
	}
}

func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * l.Step
}

func (l Linear) ShouldRetry(attempt int) bool {
	return attempt <= l.MaxAttempts
}
