package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Executor guards the calls made to one dependency. Every operation has its
// own breaker, and only operations registered as idempotent are replayed.
type Executor struct {
	cfg        Config
	classify   Classifier
	idempotent map[string]bool

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config, classify Classifier, idempotent ...string) *Executor {
	e := &Executor{
		cfg:        cfg.withDefaults(),
		classify:   classify,
		idempotent: make(map[string]bool, len(idempotent)),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, op := range idempotent {
		e.idempotent[op] = true
	}
	return e
}

// Do runs fn for operation.
func (e *Executor) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	attempts := 1
	if e.idempotent[operation] {
		attempts = e.cfg.Retry.Attempts
	}
	if !e.cfg.Breaker.Enabled {
		return e.attempt(ctx, operation, attempts, fn)
	}
	_, err := e.breaker(operation).Execute(func() (struct{}, error) {
		return struct{}{}, e.attempt(ctx, operation, attempts, fn)
	})
	return err
}

// Temporary reports whether a later call for the same work could succeed.
func (e *Executor) Temporary(err error) bool {
	return BreakerOpen(err) || e.outcome(err) == Transient
}

func (e *Executor) attempt(ctx context.Context, operation string, attempts int, fn func(context.Context) error) error {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || n >= attempts || e.outcome(err) != Transient {
			return err
		}

		wait := e.cfg.Retry.delay(n)
		e.cfg.Logger.Warn("retry_attempt", "operation", operation, "attempt", n, "of", attempts, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}

func (e *Executor) outcome(err error) Outcome {
	switch {
	case err == nil:
		return Refused
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Refused
	case e.classify == nil:
		return Fault
	default:
		return e.classify(err)
	}
}

func (e *Executor) breaker(operation string) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	cb, ok := e.breakers[operation]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        operation,
			MaxRequests: e.cfg.Breaker.Probes,
			Timeout:     e.cfg.Breaker.Cooldown,
			ReadyToTrip: e.cfg.Breaker.shouldTrip,
			IsSuccessful: func(err error) bool {
				return err == nil || e.outcome(err) == Refused
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				e.cfg.Logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
				if e.cfg.OnStateChange != nil {
					e.cfg.OnStateChange(name, to == gobreaker.StateOpen)
				}
			},
		})
		e.breakers[operation] = cb
	}
	return cb
}

// BreakerOpen reports whether err came from a breaker refusing the call.
func BreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
