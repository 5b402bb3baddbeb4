package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/blockvista/gateway/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChain serves a canned chain out of memory.
type fakeChain struct {
	deltas []rpc.AddressDelta
	blocks map[int64]*rpc.BlockDeltas
	tip    int64

	deltasErr error
	blocksErr error

	blockDeltaCalls atomic.Int64
	headerCalls     atomic.Int64
}

func blockHash(height int64) string { return fmt.Sprintf("hash-%d", height) }

func (f *fakeChain) AddressDeltas(_ context.Context, _ string, start, end int64) ([]rpc.AddressDelta, error) {
	if f.deltasErr != nil {
		return nil, f.deltasErr
	}
	out := []rpc.AddressDelta{}
	for _, d := range f.deltas {
		if start > 0 && d.Height < start {
			continue
		}
		if end > 0 && d.Height > end {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeChain) BlockDeltas(_ context.Context, hash string) (*rpc.BlockDeltas, error) {
	if f.blocksErr != nil {
		return nil, f.blocksErr
	}
	f.blockDeltaCalls.Add(1)
	for _, b := range f.blocks {
		if b.Hash == hash {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown block %s", hash)
}

func (f *fakeChain) BlockHash(_ context.Context, height int64) (string, error) {
	if _, ok := f.blocks[height]; !ok {
		return "", fmt.Errorf("no block at height %d", height)
	}
	return blockHash(height), nil
}

func (f *fakeChain) BlockHeader(_ context.Context, hash string) (*rpc.BlockHeader, error) {
	f.headerCalls.Add(1)
	for _, b := range f.blocks {
		if b.Hash == hash {
			return &rpc.BlockHeader{Hash: b.Hash, Height: b.Height, Time: b.Time}, nil
		}
	}
	return nil, fmt.Errorf("unknown header %s", hash)
}

func (f *fakeChain) BlockCount(context.Context) (int64, error) { return f.tip, nil }

// simpleBlock builds a block whose every transaction moves value from
// one external address to the given outputs.
func simpleBlock(height, time int64, txs ...rpc.TxDeltas) *rpc.BlockDeltas {
	return &rpc.BlockDeltas{Hash: blockHash(height), Height: height, Time: time, Deltas: txs}
}

func spendTx(txid string, index int64, from string, inputs []int64, outputs map[string]int64) rpc.TxDeltas {
	tx := rpc.TxDeltas{Txid: txid, Index: index}
	for i, v := range inputs {
		tx.Inputs = append(tx.Inputs, rpc.DeltaEntry{Address: from, Satoshis: -v, Index: int64(i)})
	}
	i := int64(0)
	for addr, v := range outputs {
		tx.Outputs = append(tx.Outputs, rpc.DeltaEntry{Address: addr, Satoshis: v, Index: i})
		i++
	}
	return tx
}

const addr = "t1queried"

// newFixture builds a 3-block chain with 4 transactions touching addr.
func newFixture() *fakeChain {
	return &fakeChain{
		tip: 105,
		deltas: []rpc.AddressDelta{
			{Address: addr, Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: 500},
			{Address: addr, Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: -200},
			{Address: addr, Txid: "bb", Height: 101, BlockIndex: 0, Satoshis: 1000},
			{Address: addr, Txid: "cc", Height: 101, BlockIndex: 1, Satoshis: -400},
			{Address: addr, Txid: "dd", Height: 103, BlockIndex: 0, Satoshis: 2500},
		},
		blocks: map[int64]*rpc.BlockDeltas{
			100: simpleBlock(100, 1000,
				spendTx("aa", 0, addr, []int64{700}, map[string]int64{addr: 500, "t1other": 190})),
			101: simpleBlock(101, 2000,
				spendTx("bb", 0, "t1payer", []int64{1200}, map[string]int64{addr: 1000, "t1payer": 150}),
				spendTx("cc", 1, addr, []int64{400}, map[string]int64{"t1shop": 390})),
			103: simpleBlock(103, 3000,
				rpc.TxDeltas{Txid: "dd", Index: 0, Outputs: []rpc.DeltaEntry{{Address: addr, Satoshis: 2500}}}),
		},
	}
}

func newTestAggregator(chain ChainReader) *Aggregator {
	return NewAggregator(chain, 8, zap.NewNop())
}

func TestGroupingIsOrderIndependent(t *testing.T) {
	deltas := []rpc.AddressDelta{
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: 500},
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: -200},
		{Txid: "bb", Height: 100, BlockIndex: 1, Satoshis: 300},
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: 50},
	}

	want := groupDeltas(deltas)
	for i := 0; i < 20; i++ {
		shuffled := make([]rpc.AddressDelta, len(deltas))
		copy(shuffled, deltas)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, groupDeltas(shuffled))
	}
}

func TestGroupingInvariants(t *testing.T) {
	groups := groupDeltas([]rpc.AddressDelta{
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: 500},
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: -200},
	})
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, int64(300), g.net)
	assert.Equal(t, int64(500), g.received)
	assert.Equal(t, int64(200), g.sent)
	assert.Equal(t, g.net, g.received-g.sent)
}

func TestGroupingOrderDescending(t *testing.T) {
	groups := groupDeltas([]rpc.AddressDelta{
		{Txid: "aa", Height: 100, BlockIndex: 0, Satoshis: 1},
		{Txid: "zz", Height: 100, BlockIndex: 0, Satoshis: 1},
		{Txid: "bb", Height: 100, BlockIndex: 2, Satoshis: 1},
		{Txid: "cc", Height: 104, BlockIndex: 0, Satoshis: 1},
	})

	keys := make([]Cursor, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.key)
	}
	assert.Equal(t, []Cursor{
		{Height: 104, TxIndex: 0, Txid: "cc"},
		{Height: 100, TxIndex: 2, Txid: "bb"},
		{Height: 100, TxIndex: 0, Txid: "zz"},
		{Height: 100, TxIndex: 0, Txid: "aa"},
	}, keys)
}

func TestActivityEnrichment(t *testing.T) {
	agg := newTestAggregator(newFixture())

	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 4, page.FilteredTotal)
	require.Len(t, page.Transactions, 4)

	byTxid := map[string]Transaction{}
	for _, tx := range page.Transactions {
		byTxid[tx.Txid] = tx
	}

	// aa: self spend, 700 in, 500 back + 190 to another, 10 fee.
	aa := byTxid["aa"]
	assert.Equal(t, int64(300), aa.Net)
	assert.Equal(t, int64(500), aa.Received)
	assert.Equal(t, int64(200), aa.Sent)
	assert.Equal(t, "received", aa.Direction)
	assert.Equal(t, int64(300), aa.Value)
	assert.Equal(t, int64(10), aa.Fee)
	assert.Equal(t, int64(500), aa.Change)
	assert.Equal(t, int64(200), aa.ToOthers)
	assert.True(t, aa.SelfTransfer)
	assert.False(t, aa.IsCoinbase)
	assert.Equal(t, int64(1000), aa.Timestamp)
	// Tip 105, height 100.
	assert.Equal(t, int64(6), aa.Confirmations)
	assert.Equal(t, []string{addr}, aa.FromAddresses)

	// bb: plain receive from a third party.
	bb := byTxid["bb"]
	assert.Equal(t, "received", bb.Direction)
	assert.Equal(t, int64(1000), bb.Value)
	assert.Equal(t, int64(0), bb.ToOthers)
	assert.False(t, bb.SelfTransfer)
	assert.Equal(t, []string{"t1payer"}, bb.FromAddresses)

	// cc: spend with no change.
	cc := byTxid["cc"]
	assert.Equal(t, "sent", cc.Direction)
	assert.Equal(t, int64(400), cc.Value)
	assert.Equal(t, int64(10), cc.Fee)
	assert.Equal(t, int64(0), cc.Change)
	// Everything leaving the address counts, fee included.
	assert.Equal(t, int64(400), cc.ToOthers)

	// dd: coinbase, no inputs, fee and change pinned to zero.
	dd := byTxid["dd"]
	assert.True(t, dd.IsCoinbase)
	assert.Equal(t, int64(0), dd.Fee)
	assert.Equal(t, int64(0), dd.Change)
	assert.Equal(t, int64(0), dd.ToOthers)
	assert.Equal(t, int64(3), dd.Confirmations)
}

func TestActivityHeaderCacheFetchesOncePerHeight(t *testing.T) {
	chain := newFixture()
	agg := newTestAggregator(chain)

	_, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), chain.headerCalls.Load())

	// Second call over the same heights reuses every header.
	_, err = agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), chain.headerCalls.Load())
}

func TestActivityCursorPaginationIsGapFree(t *testing.T) {
	agg := newTestAggregator(newFixture())
	ctx := context.Background()

	full, err := agg.GetAddressActivity(ctx, addr, PageParams{Limit: 10})
	require.NoError(t, err)

	var walked []Transaction
	params := PageParams{Limit: 1}
	for {
		page, err := agg.GetAddressActivity(ctx, addr, params)
		require.NoError(t, err)
		walked = append(walked, page.Transactions...)
		if page.NextCursor == nil {
			break
		}
		cur, err := DecodeCursor(*page.NextCursor)
		require.NoError(t, err)
		params.Cursor = &cur
	}

	assert.Equal(t, full.Transactions, walked)
}

func TestActivityOffsetPagination(t *testing.T) {
	agg := newTestAggregator(newFixture())

	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	require.NotNil(t, page.Offset)
	assert.Equal(t, 1, *page.Offset)
	assert.Equal(t, "cc", page.Transactions[0].Txid)
	assert.Equal(t, "bb", page.Transactions[1].Txid)
	require.NotNil(t, page.NextCursor)
}

func TestActivityStaleCursorRestartsFromTop(t *testing.T) {
	agg := newTestAggregator(newFixture())

	stale := &Cursor{Height: 99, TxIndex: 7, Txid: "gone"}
	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 2, Cursor: stale})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, "dd", page.Transactions[0].Txid)
	assert.Nil(t, page.Offset)
}

func TestActivityTimestampFilter(t *testing.T) {
	agg := newTestAggregator(newFixture())

	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{
		Limit: 10, FromTime: 1500, ToTime: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.FilteredTotal)
	for _, tx := range page.Transactions {
		assert.Equal(t, int64(101), tx.Height)
	}
}

func TestActivityBlockRangeBound(t *testing.T) {
	agg := newTestAggregator(newFixture())

	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{
		Limit: 10, FromBlock: 101, ToBlock: 101,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestActivityLimitClamped(t *testing.T) {
	agg := newTestAggregator(newFixture())

	page, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 9999})
	require.NoError(t, err)
	assert.Equal(t, 250, page.Limit)

	page, err = agg.GetAddressActivity(context.Background(), addr, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Limit)
	assert.Len(t, page.Transactions, 1)
}

func TestActivityUpstreamFailureAbortsWholeCall(t *testing.T) {
	chain := newFixture()
	chain.blocksErr = errors.New("connection refused")
	agg := newTestAggregator(chain)

	_, err := agg.GetAddressActivity(context.Background(), addr, PageParams{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestActivityEmptyAddress(t *testing.T) {
	agg := newTestAggregator(&fakeChain{tip: 10, blocks: map[int64]*rpc.BlockDeltas{}})

	page, err := agg.GetAddressActivity(context.Background(), "t1empty", PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Transactions)
	assert.Nil(t, page.NextCursor)
}
