package export

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// Class configures one token-bucket quota class.
type Class struct {
	Capacity     float64
	RefillPerSec float64
	BlockFor     time.Duration
}

// bucket is one identity's quota state, refilled lazily on each check.
type bucket struct {
	mu           sync.Mutex
	tokens       float64
	lastRefill   time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// Limiter enforces one quota class across client identities. State is
// created lazily per identity and swept once idle past a TTL.
type Limiter struct {
	class   Class
	buckets *xsync.Map[string, *bucket]
	now     func() time.Time
}

func NewLimiter(class Class) *Limiter {
	return &Limiter{
		class:   class,
		buckets: xsync.NewMap[string, *bucket](),
		now:     time.Now,
	}
}

// Allow spends cost tokens for the identity. A rejection carries the
// remaining wait: the rest of an active block window, or the fresh
// block window entered when the bucket runs dry.
func (l *Limiter) Allow(identity string, cost float64) (time.Duration, bool) {
	now := l.now()
	b, _ := l.buckets.LoadOrCompute(identity, func() (*bucket, bool) {
		return &bucket{tokens: l.class.Capacity, lastRefill: now}, false
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeen = now
	if now.Before(b.blockedUntil) {
		return b.blockedUntil.Sub(now), false
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.class.RefillPerSec
	if b.tokens > l.class.Capacity {
		b.tokens = l.class.Capacity
	}
	b.lastRefill = now

	if b.tokens < cost {
		b.blockedUntil = now.Add(l.class.BlockFor)
		return l.class.BlockFor, false
	}
	b.tokens -= cost
	return 0, true
}

// Sweep discards identities idle longer than ttl and returns how many
// were dropped.
func (l *Limiter) Sweep(ttl time.Duration) int {
	cutoff := l.now().Add(-ttl)
	dropped := 0
	l.buckets.Range(func(identity string, b *bucket) bool {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			l.buckets.Delete(identity)
			dropped++
		}
		return true
	})
	return dropped
}

// Size reports the number of tracked identities.
func (l *Limiter) Size() int { return l.buckets.Size() }
