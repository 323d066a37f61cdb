package pypistats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

const breakerThreshold = 5

// breakerSet holds one circuit breaker per upstream host. Only transport
// and server failures count toward tripping. A missing package, a bad
// payload or a rate limit says nothing about the host's health.
type breakerSet struct {
	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

func newBreakerSet() *breakerSet {
	return &breakerSet{breakers: make(map[string]*circuit.Breaker)}
}

func (b *breakerSet) get(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, ok := b.breakers[host]
	b.mu.RUnlock()
	if ok {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if breaker, ok := b.breakers[host]; ok {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(breakerThreshold),
	})
	b.breakers[host] = breaker
	return breaker
}

func (b *breakerSet) do(host string, fn func() error) error {
	var outcome error
	err := b.get(host).Call(func() error {
		outcome = fn()
		if countsAgainstHost(outcome) {
			return outcome
		}
		return nil
	}, 0)
	if errors.Is(err, circuit.ErrBreakerOpen) {
		return fmt.Errorf("circuit open for %s: %w", host, ErrUpstreamDown)
	}
	if err != nil {
		return err
	}
	return outcome
}

// states reports "open" or "closed" per host.
func (b *breakerSet) states() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.breakers))
	for host, breaker := range b.breakers {
		if breaker.Tripped() {
			out[host] = "open"
		} else {
			out[host] = "closed"
		}
	}
	return out
}

func countsAgainstHost(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSchema), errors.Is(err, errUnexpectedStatus),
		errors.Is(err, ErrRateLimited), errors.Is(err, context.Canceled):
		return false
	}
	return true
}
