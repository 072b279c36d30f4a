package rsp

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/rsp/wire"
)

// NewCircuitBreakerConfig returns a function that creates the circuit breaker of a server.
// This is a helper for common use cases.
//
// Only transport failures count against the server: responses are decoded outside
// of the breaker, and pool exhaustion or caller cancellation are not server faults.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) *gobreaker.CircuitBreaker[[]byte] {
	return func(addr string) *gobreaker.CircuitBreaker[[]byte] {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: isServerHealthy,
		}
		return gobreaker.NewCircuitBreaker[[]byte](settings)
	}
}

func isServerHealthy(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrNoConnectionsAvailable),
		errors.Is(err, ErrPoolClosed):
		return true
	default:
		return !wire.ShouldCloseConnection(err)
	}
}
