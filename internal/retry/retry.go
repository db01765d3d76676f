// Package retry drives the per-asset attempt loop: a bounded number of
// attempts separated by a fixed delay, ending in Succeeded or Exhausted.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults used when a Policy field is left at zero.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// State is the position of one asset in the retry state machine.
type State int

const (
	// Pending is the initial state; the asset has not yet succeeded or run out of attempts.
	Pending State = iota
	// Succeeded is terminal: an attempt returned without error.
	Succeeded
	// Exhausted is terminal: MaxAttempts attempts failed.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "pending"
	}
}

// Policy bounds the attempts made for one asset.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns three attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Outcome is the terminal result of Run for one asset.
type Outcome struct {
	State    State
	Attempts int
	// Err is the error of the last failed attempt; nil when Succeeded.
	Err error
}

// Controller runs attempts under a Policy.
type Controller struct {
	policy  Policy
	sleeper func(time.Duration)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithSleeper overrides how inter-attempt sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Controller) {
		c.sleeper = sleeper
	}
}

// NewController builds a Controller. Zero policy fields fall back to the defaults.
func NewController(policy Policy, opts ...Option) *Controller {
	c := &Controller{policy: policy.normalized()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Run calls fn until it succeeds or MaxAttempts attempts have failed.
// There is no sleep after the final failed attempt. A context cancelled
// during the sleep ends the loop as Exhausted.
func (c *Controller) Run(ctx context.Context, name string, fn func(ctx context.Context) error) Outcome {
	out := Outcome{State: Pending}

	for out.State == Pending {
		err := fn(ctx)
		out.Attempts++
		if err == nil {
			out.State = Succeeded
			out.Err = nil
			break
		}
		out.Err = err

		log.Warn().
			Err(err).
			Str("file", name).
			Int("attempt", out.Attempts).
			Int("max_attempts", c.policy.MaxAttempts).
			Msg("Attempt failed")

		if out.Attempts >= c.policy.MaxAttempts {
			out.State = Exhausted
			break
		}
		if serr := c.sleep(ctx, c.policy.Delay); serr != nil {
			out.State = Exhausted
			out.Err = errors.Join(err, serr)
			break
		}
	}

	if out.State == Exhausted {
		log.Error().
			Err(out.Err).
			Str("file", name).
			Int("attempts", out.Attempts).
			Msg("Asset exhausted all attempts")
	}
	return out
}

func (c *Controller) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
