package activity

import (
	"context"
	"strconv"

	"github.com/blockvista/gateway/pkg/rpc"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

// HeaderCache resolves block headers by height, fetching each height at
// most once across all concurrent requests for the process lifetime.
// Headers for settled heights are immutable; a deep reorg simply leaves
// a stale entry that no live query will reference again.
type HeaderCache struct {
	headers *xsync.Map[int64, *rpc.BlockHeader]
	group   singleflight.Group
}

func NewHeaderCache() *HeaderCache {
	return &HeaderCache{headers: xsync.NewMap[int64, *rpc.BlockHeader]()}
}

// Get returns the header for the given height, fetching hash and header
// through chain on a miss. Concurrent misses for the same height share
// one fetch.
func (h *HeaderCache) Get(ctx context.Context, chain ChainReader, height int64) (*rpc.BlockHeader, error) {
	if hdr, ok := h.headers.Load(height); ok {
		return hdr, nil
	}

	v, err, _ := h.group.Do(strconv.FormatInt(height, 10), func() (any, error) {
		if hdr, ok := h.headers.Load(height); ok {
			return hdr, nil
		}
		hash, err := chain.BlockHash(ctx, height)
		if err != nil {
			return nil, err
		}
		hdr, err := chain.BlockHeader(ctx, hash)
		if err != nil {
			return nil, err
		}
		h.headers.Store(height, hdr)
		return hdr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rpc.BlockHeader), nil
}

// Len reports the number of cached headers.
func (h *HeaderCache) Len() int { return h.headers.Size() }
