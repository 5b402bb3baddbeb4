package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/blockvista/gateway/pkg/utils"
)

// nodeRequest is the bitcoin-style JSON-RPC envelope sent to the node.
type nodeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// nodeResponse is the envelope the node answers with. Either Result or
// Error is set; some node implementations return the envelope with a
// non-2xx HTTP status, so it is decoded regardless of status code.
type nodeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *NodeError      `json:"error"`
}

// NodeError is a semantic error carried inside the RPC envelope. It is
// the node rejecting the call, not the transport failing, so the router
// never retries it on another endpoint.
type NodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node rpc error %d: %s", e.Code, e.Message)
}

// AddressDelta is one signed balance change for one address caused by
// one transaction, as returned by getaddressdeltas.
type AddressDelta struct {
	Address    string
	Txid       string
	Height     int64
	BlockIndex int64
	Satoshis   int64
}

// UnmarshalJSON coerces the node's loosely typed delta row. Third-party
// address indexes encode satoshis as number, string or coin-denominated
// float depending on version.
func (d *AddressDelta) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Address = utils.ToString(raw["address"], "")
	d.Txid = utils.ToString(raw["txid"], "")
	d.Height = int64(utils.ToNumber(raw["height"], 0))
	d.BlockIndex = int64(utils.ToNumber(raw["blockindex"], 0))
	d.Satoshis = utils.ToSatoshi(raw["satoshis"])
	return nil
}

// BlockDeltas is the getblockdeltas result: every transaction in one
// block with its resolved inputs and outputs.
type BlockDeltas struct {
	Hash   string     `json:"hash"`
	Height int64      `json:"height"`
	Time   int64      `json:"time"`
	Deltas []TxDeltas `json:"deltas"`
}

// TxDeltas holds one transaction's resolved inputs and outputs.
type TxDeltas struct {
	Txid    string       `json:"txid"`
	Index   int64        `json:"index"`
	Inputs  []DeltaEntry `json:"inputs"`
	Outputs []DeltaEntry `json:"outputs"`
}

// DeltaEntry is one input or output row inside a TxDeltas. Input rows
// carry negative satoshis and reference the spent output.
type DeltaEntry struct {
	Address  string
	Satoshis int64
	Index    int64
	PrevTxid string
	PrevOut  int64
}

func (e *DeltaEntry) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Address = utils.ToString(raw["address"], "")
	e.Satoshis = utils.ToSatoshi(raw["satoshis"])
	e.Index = int64(utils.ToNumber(raw["index"], 0))
	e.PrevTxid = utils.ToString(raw["prevtxid"], "")
	e.PrevOut = int64(utils.ToNumber(raw["prevout"], 0))
	return nil
}

// BlockHeader is the subset of getblockheader the gateway consumes.
type BlockHeader struct {
	Hash          string `json:"hash"`
	Height        int64  `json:"height"`
	Time          int64  `json:"time"`
	Confirmations int64  `json:"confirmations"`
	PrevBlockhash string `json:"previousblockhash"`
}
