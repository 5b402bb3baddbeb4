package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Router tries endpoints in priority order (primary first, then the
// secondary if configured), skipping any endpoint whose breaker is open.
// If every breaker is open it tries all endpoints anyway: the breaker
// may never turn total unavailability into silence.
type Router struct {
	clients  []*Client
	breakers *BreakerSet
	logger   *zap.Logger
}

func NewRouter(clients []*Client, logger *zap.Logger) *Router {
	return &Router{
		clients:  clients,
		breakers: NewBreakerSet(),
		logger:   logger,
	}
}

// Breakers exposes the breaker registry for health reporting.
func (r *Router) Breakers() *BreakerSet { return r.breakers }

// Call routes one RPC call across the configured endpoints and decodes
// the result into out. Semantic node errors propagate immediately
// without failover; transport failures mark the endpoint and fall
// through to the next one. When every attempt fails the last error is
// returned.
func (r *Router) Call(ctx context.Context, method string, params []any, out any) error {
	if len(r.clients) == 0 {
		return errors.New("no endpoints configured")
	}

	candidates := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if !r.breakers.Open(c.Endpoint()) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		// Fail open: all breakers tripped, try everything regardless.
		candidates = r.clients
	}

	var lastErr error
	for _, c := range candidates {
		err := c.Call(ctx, method, params, out)
		if err == nil {
			r.breakers.Success(c.Endpoint())
			upstreamRequests.WithLabelValues(c.Endpoint(), method, "ok").Inc()
			return nil
		}

		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			// The node understood the call and rejected it. Another
			// endpoint would say the same thing.
			upstreamRequests.WithLabelValues(c.Endpoint(), method, "node_error").Inc()
			return err
		}

		upstreamRequests.WithLabelValues(c.Endpoint(), method, "error").Inc()
		if r.breakers.Failure(c.Endpoint()) {
			breakerOpened.WithLabelValues(c.Endpoint()).Inc()
			r.logger.Warn("endpoint breaker opened",
				zap.String("endpoint", c.Endpoint()),
				zap.String("method", method),
				zap.Error(err))
		}
		lastErr = err
	}
	return lastErr
}

// Raw routes a call and returns the undecoded result, for the node
// passthrough surface.
func (r *Router) Raw(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := r.Call(ctx, method, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
