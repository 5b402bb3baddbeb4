package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreakerSet()
	ep := "http://node-a"

	opened := b.Failure(ep)
	assert.False(t, opened)
	assert.False(t, b.Open(ep))

	opened = b.Failure(ep)
	assert.False(t, opened)
	assert.False(t, b.Open(ep))

	// Exactly the third consecutive failure trips the breaker.
	opened = b.Failure(ep)
	assert.True(t, opened)
	assert.True(t, b.Open(ep))
	assert.Equal(t, 3, b.Failures(ep))
}

func TestBreakerSingleSuccessResets(t *testing.T) {
	b := NewBreakerSet()
	ep := "http://node-a"

	for i := 0; i < 5; i++ {
		b.Failure(ep)
	}
	assert.True(t, b.Open(ep))

	b.Success(ep)
	assert.False(t, b.Open(ep))
	assert.Equal(t, 0, b.Failures(ep))
}

func TestBreakerBackoffGrowsAndCaps(t *testing.T) {
	b := NewBreakerSet()
	ep := "http://node-a"

	for i := 0; i < 3; i++ {
		b.Failure(ep)
	}
	s := b.state(ep)
	first := s.openUntil.Sub(s.lastFailureAt)
	assert.Equal(t, breakerBaseBackoff, first)

	b.Failure(ep)
	second := s.openUntil.Sub(s.lastFailureAt)
	assert.Equal(t, 2*breakerBaseBackoff, second)

	// Far past the threshold the window stays at the cap.
	for i := 0; i < 20; i++ {
		b.Failure(ep)
	}
	assert.Equal(t, breakerMaxBackoff, s.openUntil.Sub(s.lastFailureAt))
}

func TestBreakerStatesAreIndependent(t *testing.T) {
	b := NewBreakerSet()
	for i := 0; i < 3; i++ {
		b.Failure("http://node-a")
	}
	assert.True(t, b.Open("http://node-a"))
	assert.False(t, b.Open("http://node-b"))
}
