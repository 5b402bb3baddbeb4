package rpc

import (
	"context"
	"time"
)

// Heavy calls walk the address index or a whole block; light calls hit
// header-level data.
const (
	heavyCallTimeout = 30 * time.Second
	lightCallTimeout = 5 * time.Second
)

// AddressDeltas fetches the signed balance deltas for one address,
// optionally bounded to [start, end] block heights (0 means unbounded).
func (r *Router) AddressDeltas(ctx context.Context, address string, start, end int64) ([]AddressDelta, error) {
	arg := map[string]any{"addresses": []string{address}}
	if start > 0 {
		arg["start"] = start
	}
	if end > 0 {
		arg["end"] = end
	}

	ctx, cancel := context.WithTimeout(ctx, heavyCallTimeout)
	defer cancel()

	var out []AddressDelta
	if err := r.Call(ctx, "getaddressdeltas", []any{arg}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BlockDeltas fetches the resolved inputs and outputs of every
// transaction in the block with the given hash.
func (r *Router) BlockDeltas(ctx context.Context, hash string) (*BlockDeltas, error) {
	ctx, cancel := context.WithTimeout(ctx, heavyCallTimeout)
	defer cancel()

	var out BlockDeltas
	if err := r.Call(ctx, "getblockdeltas", []any{hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockHash resolves a height to its block hash.
func (r *Router) BlockHash(ctx context.Context, height int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lightCallTimeout)
	defer cancel()

	var out string
	if err := r.Call(ctx, "getblockhash", []any{height}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// BlockHeader fetches the header for the given block hash.
func (r *Router) BlockHeader(ctx context.Context, hash string) (*BlockHeader, error) {
	ctx, cancel := context.WithTimeout(ctx, lightCallTimeout)
	defer cancel()

	var out BlockHeader
	if err := r.Call(ctx, "getblockheader", []any{hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockCount returns the node's current tip height.
func (r *Router) BlockCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, lightCallTimeout)
	defer cancel()

	var out int64
	if err := r.Call(ctx, "getblockcount", nil, &out); err != nil {
		return 0, err
	}
	return out, nil
}
