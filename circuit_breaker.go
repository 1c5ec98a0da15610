package riakpb

import (
	"net"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the dials of a client. Only connection attempts go
// through it: while it is open, a task that needs a new connection fails with
// a ConnectionError wrapping gobreaker.ErrOpenState.
type CircuitBreaker = gobreaker.CircuitBreaker[net.Conn]

const (
	minDialsToTrip   = 3
	dialFailureRatio = 0.6
)

// NewCircuitBreakerConfig returns a factory for Config.NewCircuitBreaker. The
// breaker of a node opens once at least three dials were attempted within interval and 60% of them failed. After
// timeout, up to maxRequests dials probe the node again.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) *CircuitBreaker {
	return func(addr string) *CircuitBreaker {
		return gobreaker.NewCircuitBreaker[net.Conn](gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: dialsFailing,
		})
	}
}

func dialsFailing(counts gobreaker.Counts) bool {
	if counts.Requests < minDialsToTrip {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= dialFailureRatio
}
