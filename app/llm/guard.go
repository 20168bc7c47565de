package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type GuardConfig struct {
	Name string
	// RequestsPerMinute caps the call rate; 0 disables pacing.
	RequestsPerMinute int
	Timeout           time.Duration
}

// Guarded paces calls, bounds each one with a timeout and stops calling a
// provider that keeps failing.
type Guarded struct {
	next    Completer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuarded(next Completer, cfg GuardConfig) *Guarded {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("LLM circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Guarded{
		next:    next,
		limiter: limiter,
		breaker: breaker,
		timeout: cfg.Timeout,
	}
}

func (g *Guarded) Complete(ctx context.Context, req Request) (Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.next.Complete(callCtx, req)
	})
	if err != nil {
		return Response{}, err
	}

	return result.(Response), nil
}

func (g *Guarded) State() string {
	return g.breaker.State().String()
}
