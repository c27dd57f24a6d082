package riot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetryWait        = 120 * time.Second
	DefaultRetryMaxWait     = 10 * time.Minute
	DefaultRetryMaxAttempts = 5
	defaultRetryMultiplier  = 2.0
	defaultRetryJitter      = 0.1
)

// RetryPolicy bounds how a 429 response is retried. Every wait is at least
// InitialWait (or the server's Retry-After, whichever is longer) and grows
// exponentially up to MaxWait. MaxAttempts counts the first request; zero
// means retry forever.
type RetryPolicy struct {
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Jitter      float64
	MaxAttempts int
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialWait: DefaultRetryWait,
		MaxWait:     DefaultRetryMaxWait,
		Multiplier:  defaultRetryMultiplier,
		Jitter:      defaultRetryJitter,
		MaxAttempts: DefaultRetryMaxAttempts,
	}
}

// retryState is owned by a single doRequest call.
type retryState struct {
	policy  RetryPolicy
	backoff *backoff.ExponentialBackOff
	attempt int
}

func (p RetryPolicy) start() *retryState {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialWait
	b.MaxInterval = p.MaxWait
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	return &retryState{policy: p, backoff: b, attempt: 1}
}

// next returns how long to wait before the next attempt, or false when the
// attempt ceiling has been reached.
func (s *retryState) next(retryAfter time.Duration) (time.Duration, bool) {
	if s.policy.MaxAttempts > 0 && s.attempt >= s.policy.MaxAttempts {
		return 0, false
	}
	s.attempt++

	wait := s.backoff.NextBackOff()
	if wait == backoff.Stop {
		return 0, false
	}
	if wait < s.policy.InitialWait {
		wait = s.policy.InitialWait
	}
	if retryAfter > wait {
		wait = retryAfter
	}
	return wait, true
}

// parseRetryAfter reads the Retry-After header as whole seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// sleep blocks for d, printing a once-per-second countdown for long waits.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var tick <-chan time.Time
	if d >= time.Second {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}
	deadline := time.Now().Add(d)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if tick != nil {
				fmt.Print("\n")
			}
			return nil
		case <-tick:
			remaining := time.Until(deadline).Round(time.Second)
			fmt.Printf("\r      Retrying in %d seconds...", int(remaining.Seconds()))
		}
	}
}
