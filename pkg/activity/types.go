package activity

import (
	"context"

	"github.com/blockvista/gateway/pkg/rpc"
)

// ChainReader is the slice of the node surface the aggregator consumes.
// *rpc.Router satisfies it; tests inject a fake node.
type ChainReader interface {
	AddressDeltas(ctx context.Context, address string, start, end int64) ([]rpc.AddressDelta, error)
	BlockDeltas(ctx context.Context, hash string) (*rpc.BlockDeltas, error)
	BlockHash(ctx context.Context, height int64) (string, error)
	BlockHeader(ctx context.Context, hash string) (*rpc.BlockHeader, error)
	BlockCount(ctx context.Context) (int64, error)
}

// PageParams selects and pages the activity feed. Cursor wins over
// Offset when both are set. Zero time bounds mean unbounded.
type PageParams struct {
	Limit     int
	Offset    int
	Cursor    *Cursor
	FromBlock int64
	ToBlock   int64
	FromTime  int64
	ToTime    int64
}

// Transaction is one enriched entry of the activity feed.
type Transaction struct {
	Txid          string   `json:"txid"`
	Height        int64    `json:"height"`
	TxIndex       int64    `json:"tx_index"`
	Timestamp     int64    `json:"timestamp"`
	Direction     string   `json:"direction"`
	Value         int64    `json:"value"`
	Net           int64    `json:"net"`
	Received      int64    `json:"received"`
	Sent          int64    `json:"sent"`
	Fee           int64    `json:"fee"`
	Change        int64    `json:"change"`
	ToOthers      int64    `json:"to_others"`
	SelfTransfer  bool     `json:"self_transfer"`
	IsCoinbase    bool     `json:"is_coinbase"`
	Confirmations int64    `json:"confirmations"`
	FromAddresses []string `json:"from_addresses"`
	ToAddresses   []string `json:"to_addresses"`
}

// Page is one slice of the filtered, ordered activity feed. Total counts
// grouped transactions before time filtering, FilteredTotal after.
type Page struct {
	Transactions  []Transaction `json:"transactions"`
	Total         int           `json:"total"`
	FilteredTotal int           `json:"filtered_total"`
	Limit         int           `json:"limit"`
	Offset        *int          `json:"offset,omitempty"`
	NextCursor    *string       `json:"next_cursor,omitempty"`
}
