package activity

import (
	"context"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/blockvista/gateway/pkg/rpc"
	"go.uber.org/zap"
)

const (
	enrichWorkers = 8
	minPageLimit  = 1
	maxPageLimit  = 250
)

// Aggregator turns raw per-address balance deltas into a stable,
// paginated, enriched transaction feed.
type Aggregator struct {
	chain   ChainReader
	headers *HeaderCache
	logger  *zap.Logger
	workers int
}

func NewAggregator(chain ChainReader, workers int, logger *zap.Logger) *Aggregator {
	if workers <= 0 {
		workers = enrichWorkers
	}
	return &Aggregator{
		chain:   chain,
		headers: NewHeaderCache(),
		logger:  logger,
		workers: workers,
	}
}

// grouped is one logical transaction accumulated from delta records
// sharing the (height, txIndex, txid) key.
type grouped struct {
	key      Cursor
	net      int64
	received int64
	sent     int64
}

// blockDetail is the enrichment result for one distinct height.
type blockDetail struct {
	time      int64
	summaries map[string]IOSummary
}

// GetAddressActivity fetches, groups, enriches, filters and pages the
// activity of one address. Any upstream failure aborts the whole call;
// there are no partial pages.
func (a *Aggregator) GetAddressActivity(ctx context.Context, address string, p PageParams) (*Page, error) {
	deltas, err := a.chain.AddressDeltas(ctx, address, p.FromBlock, p.ToBlock)
	if err != nil {
		return nil, fmt.Errorf("fetch address deltas: %w", err)
	}

	groups := groupDeltas(deltas)
	total := len(groups)

	tip, err := a.chain.BlockCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tip height: %w", err)
	}

	details, err := a.enrich(ctx, address, groups)
	if err != nil {
		return nil, fmt.Errorf("enrich blocks: %w", err)
	}

	filtered := make([]Transaction, 0, len(groups))
	for _, g := range groups {
		detail := details[g.key.Height]
		if detail == nil {
			continue
		}
		if p.FromTime > 0 && detail.time < p.FromTime {
			continue
		}
		if p.ToTime > 0 && detail.time > p.ToTime {
			continue
		}
		filtered = append(filtered, buildEntry(g, detail, tip))
	}

	limit := p.Limit
	if limit < minPageLimit {
		limit = minPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	start, offsetMode := resolveStart(filtered, p)
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	if start > len(filtered) {
		start = len(filtered)
		end = start
	}

	page := &Page{
		Transactions:  filtered[start:end],
		Total:         total,
		FilteredTotal: len(filtered),
		Limit:         limit,
	}
	if offsetMode {
		offset := start
		page.Offset = &offset
	}
	if end < len(filtered) {
		next := Cursor{
			Height:  filtered[end].Height,
			TxIndex: filtered[end].TxIndex,
			Txid:    filtered[end].Txid,
		}.Encode()
		page.NextCursor = &next
	}
	return page, nil
}

// groupDeltas accumulates delta records by (height, txIndex, txid) and
// returns the groups in descending feed order. Grouping is insensitive
// to the input record order.
func groupDeltas(deltas []rpc.AddressDelta) []grouped {
	byKey := map[Cursor]*grouped{}
	for _, d := range deltas {
		key := Cursor{Height: d.Height, TxIndex: d.BlockIndex, Txid: d.Txid}
		g, ok := byKey[key]
		if !ok {
			g = &grouped{key: key}
			byKey[key] = g
		}
		g.net += d.Satoshis
		if d.Satoshis >= 0 {
			g.received += d.Satoshis
		} else {
			g.sent += -d.Satoshis
		}
	}

	out := make([]grouped, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, *g)
	}
	// Descending height, then txIndex, then txid: a total order, so
	// entries never swap between calls.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex > b.TxIndex
		}
		return a.Txid > b.Txid
	})
	return out
}

// enrich fetches block-level detail for every distinct height touched by
// the grouped transactions, with a fixed-size worker pool. Each worker
// writes only its own result slot.
func (a *Aggregator) enrich(ctx context.Context, address string, groups []grouped) (map[int64]*blockDetail, error) {
	seen := map[int64]bool{}
	heights := make([]int64, 0, len(groups))
	for _, g := range groups {
		if !seen[g.key.Height] {
			seen[g.key.Height] = true
			heights = append(heights, g.key.Height)
		}
	}
	if len(heights) == 0 {
		return map[int64]*blockDetail{}, nil
	}

	results := make([]*blockDetail, len(heights))

	pool := pond.NewPool(a.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, h := range heights {
		group.SubmitErr(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			hdr, err := a.headers.Get(groupCtx, a.chain, h)
			if err != nil {
				return fmt.Errorf("header at height %d: %w", h, err)
			}
			bd, err := a.chain.BlockDeltas(groupCtx, hdr.Hash)
			if err != nil {
				return fmt.Errorf("block deltas at height %d: %w", h, err)
			}
			detail := &blockDetail{time: hdr.Time, summaries: make(map[string]IOSummary, len(bd.Deltas))}
			for _, tx := range bd.Deltas {
				detail.summaries[tx.Txid] = summarize(tx, address)
			}
			results[i] = detail
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	byHeight := make(map[int64]*blockDetail, len(heights))
	for i, h := range heights {
		byHeight[h] = results[i]
	}
	return byHeight, nil
}

// buildEntry assembles one output entry from its group and block detail.
func buildEntry(g grouped, detail *blockDetail, tip int64) Transaction {
	s := detail.summaries[g.key.Txid]

	direction := "received"
	value := g.net
	if g.net < 0 {
		direction = "sent"
		value = -g.net
	}

	var confirmations int64
	if g.key.Height >= 0 && g.key.Height <= tip {
		confirmations = tip - g.key.Height + 1
	}

	return Transaction{
		Txid:          g.key.Txid,
		Height:        g.key.Height,
		TxIndex:       g.key.TxIndex,
		Timestamp:     detail.time,
		Direction:     direction,
		Value:         value,
		Net:           g.net,
		Received:      g.received,
		Sent:          g.sent,
		Fee:           s.Fee,
		Change:        s.Change,
		ToOthers:      s.ToOthers,
		SelfTransfer:  s.SelfTransfer,
		IsCoinbase:    s.IsCoinbase,
		Confirmations: confirmations,
		FromAddresses: s.FromAddresses,
		ToAddresses:   s.ToAddresses,
	}
}

// resolveStart locates the page start in the filtered sequence. A cursor
// that matches an entry resumes right after it; a cursor that matches
// nothing (stale after a reorg) restarts from the top instead of
// erroring. Without a cursor the numeric offset applies.
func resolveStart(filtered []Transaction, p PageParams) (start int, offsetMode bool) {
	if p.Cursor != nil {
		for i, tx := range filtered {
			if tx.Height == p.Cursor.Height && tx.TxIndex == p.Cursor.TxIndex && tx.Txid == p.Cursor.Txid {
				return i + 1, false
			}
		}
		return 0, false
	}
	if p.Offset > 0 {
		return p.Offset, true
	}
	return 0, true
}
