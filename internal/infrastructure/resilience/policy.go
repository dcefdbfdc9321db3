package resilience

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome is what a failed attempt says about the dependency behind it.
type Outcome int

const (
	// Fault counts against the breaker and is not retried.
	Fault Outcome = iota
	// Transient counts against the breaker; idempotent operations retry it.
	Transient
	// Refused is the caller's fault (bad request, cancelled context). It is
	// neither counted nor retried.
	Refused
)

type Classifier func(err error) Outcome

// Retry paces replays of idempotent operations.
type Retry struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Multiplier float64
}

// delay is the pause that follows the n-th failed attempt.
func (r Retry) delay(n int) time.Duration {
	d := time.Duration(float64(r.Backoff) * math.Pow(r.Multiplier, float64(n-1)))
	if d <= 0 || d > r.MaxBackoff {
		return r.MaxBackoff
	}
	return d
}

type Breaker struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	Cooldown     time.Duration
	// Probes is how many calls a half-open breaker lets through.
	Probes uint32
}

func (b Breaker) shouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests < b.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= b.FailureRatio
}

type Config struct {
	Retry   Retry
	Breaker Breaker

	Logger *slog.Logger
	// OnStateChange is told whether the named breaker is now open.
	OnStateChange func(operation string, open bool)
}

func (c Config) withDefaults() Config {
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 3
	}
	c.Retry.Backoff = orDefault(c.Retry.Backoff, 100*time.Millisecond)
	c.Retry.MaxBackoff = max(orDefault(c.Retry.MaxBackoff, 400*time.Millisecond), c.Retry.Backoff)
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = 2
	}

	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		c.Breaker.FailureRatio = 0.5
	}
	c.Breaker.Cooldown = orDefault(c.Breaker.Cooldown, 30*time.Second)
	if c.Breaker.Probes == 0 {
		c.Breaker.Probes = 2
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
