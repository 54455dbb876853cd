package storage

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttled wraps a Store, delaying gets and puts so that neither exceeds a
// configured rate. Callers wait rather than fail, so that a metered backend
// is not asked to reject requests.
type Throttled struct {
	delegate Store
	gets     *rate.Limiter
	puts     *rate.Limiter
}

// NewThrottled wraps delegate. A non-positive rate means no limit.
func NewThrottled(delegate Store, getsPerSecond, putsPerSecond float64) *Throttled {
	return &Throttled{
		delegate: delegate,
		gets:     perSecondLimiter(getsPerSecond),
		puts:     perSecondLimiter(putsPerSecond),
	}
}

func (s *Throttled) Put(key, value []byte, ttl time.Duration) error {
	time.Sleep(s.puts.Reserve().Delay())
	return s.delegate.Put(key, value, ttl)
}

func (s *Throttled) Get(key []byte) ([]byte, error) {
	time.Sleep(s.gets.Reserve().Delay())
	return s.delegate.Get(key)
}

// Sweep forwards to the wrapped store, if it is a Sweeper. Sweeps are not
// throttled.
func (s *Throttled) Sweep() (removed int, err error) {
	if sw, ok := s.delegate.(Sweeper); ok {
		return sw.Sweep()
	}
	return 0, nil
}

func perSecondLimiter(n float64) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(n), 1)
}
