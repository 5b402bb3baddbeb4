package rpc

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const (
	breakerThreshold   = 3
	breakerBaseBackoff = time.Second
	breakerMaxBackoff  = 30 * time.Second
)

// breakerState is one endpoint's circuit state. Created lazily on first
// use, lives for the process lifetime.
type breakerState struct {
	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
	lastFailureAt       time.Time
}

// BreakerSet is the per-endpoint circuit-breaker registry. It is owned
// by the Router and passed around by reference, never ambient.
type BreakerSet struct {
	states *xsync.Map[string, *breakerState]
}

func NewBreakerSet() *BreakerSet {
	return &BreakerSet{states: xsync.NewMap[string, *breakerState]()}
}

func (b *BreakerSet) state(endpoint string) *breakerState {
	s, _ := b.states.LoadOrCompute(endpoint, func() (*breakerState, bool) {
		return &breakerState{}, false
	})
	return s
}

// Open reports whether the endpoint's breaker is currently open.
// An expired window allows traffic again without clearing the failure
// count; only a success resets it.
func (b *BreakerSet) Open(endpoint string) bool {
	s := b.state(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.openUntil.IsZero() && time.Now().Before(s.openUntil)
}

// Failure records a failed attempt. Once the consecutive count reaches
// the threshold the breaker opens for an exponentially growing window,
// capped at breakerMaxBackoff. Returns true on a closed-to-open
// transition.
func (b *BreakerSet) Failure(endpoint string) bool {
	s := b.state(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.consecutiveFailures++
	s.lastFailureAt = now
	if s.consecutiveFailures < breakerThreshold {
		return false
	}

	backoff := breakerBaseBackoff << uint(s.consecutiveFailures-breakerThreshold)
	if backoff > breakerMaxBackoff || backoff <= 0 {
		backoff = breakerMaxBackoff
	}
	wasOpen := !s.openUntil.IsZero() && now.Before(s.openUntil)
	s.openUntil = now.Add(backoff)
	return !wasOpen
}

// Success resets the endpoint's breaker.
func (b *BreakerSet) Success(endpoint string) {
	s := b.state(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFailures = 0
	s.openUntil = time.Time{}
}

// Failures returns the current consecutive failure count, for health
// reporting.
func (b *BreakerSet) Failures(endpoint string) int {
	s := b.state(endpoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}
