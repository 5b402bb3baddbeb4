// Package coalesce shares one in-flight computation across concurrent
// identical requests. Unlike plain single-flight, a finished result is
// retained until its window expires, so near-simultaneous duplicates
// still reuse it.
package coalesce

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

type flight[V any] struct {
	done    chan struct{}
	val     V
	err     error
	started time.Time
}

// Group coalesces computations by key within a fixed window.
type Group[V any] struct {
	window  time.Duration
	flights *xsync.Map[string, *flight[V]]
	now     func() time.Time
}

func NewGroup[V any](window time.Duration) *Group[V] {
	return &Group[V]{
		window:  window,
		flights: xsync.NewMap[string, *flight[V]](),
		now:     time.Now,
	}
}

// Do returns the shared result for key. The first caller inside a
// window runs compute; every other caller in the same window blocks on
// the same flight and receives the identical value or error.
func (g *Group[V]) Do(key string, compute func() (V, error)) (V, error) {
	for {
		now := g.now()
		f, loaded := g.flights.LoadOrCompute(key, func() (*flight[V], bool) {
			return &flight[V]{done: make(chan struct{}), started: now}, false
		})
		if !loaded {
			f.val, f.err = compute()
			close(f.done)
			return f.val, f.err
		}
		if now.Sub(f.started) >= g.window {
			// Window elapsed; replace the stale flight and try again.
			g.flights.Compute(key, func(cur *flight[V], ok bool) (*flight[V], xsync.ComputeOp) {
				if ok && cur == f {
					return cur, xsync.DeleteOp
				}
				return cur, xsync.CancelOp
			})
			continue
		}
		<-f.done
		return f.val, f.err
	}
}

// Sweep drops flights whose window has expired, whether or not they
// completed, and returns how many were removed.
func (g *Group[V]) Sweep() int {
	cutoff := g.now().Add(-g.window)
	dropped := 0
	g.flights.Range(func(key string, f *flight[V]) bool {
		if f.started.Before(cutoff) {
			g.flights.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

// Size reports the number of tracked flights.
func (g *Group[V]) Size() int { return g.flights.Size() }
