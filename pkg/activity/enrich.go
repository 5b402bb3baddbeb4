package activity

import "github.com/blockvista/gateway/pkg/rpc"

// IOSummary is the block-level detail derived once per distinct txid.
type IOSummary struct {
	FromAddresses []string
	ToAddresses   []string
	Fee           int64
	Change        int64
	ToOthers      int64
	IsCoinbase    bool
	SelfTransfer  bool
}

// summarize computes the IO summary of one transaction from the
// perspective of the queried address. Input satoshis arrive negative
// from the node; totals work on their absolute values.
func summarize(tx rpc.TxDeltas, address string) IOSummary {
	var from, to []string
	var totalIn, totalOut, sentFrom, change int64

	seenFrom := map[string]bool{}
	for _, in := range tx.Inputs {
		totalIn += -in.Satoshis
		if in.Address == address {
			sentFrom += -in.Satoshis
		}
		if in.Address != "" && !seenFrom[in.Address] {
			seenFrom[in.Address] = true
			from = append(from, in.Address)
		}
	}

	seenTo := map[string]bool{}
	for _, out := range tx.Outputs {
		totalOut += out.Satoshis
		if out.Address == address {
			change += out.Satoshis
		}
		if out.Address != "" && !seenTo[out.Address] {
			seenTo[out.Address] = true
			to = append(to, out.Address)
		}
	}

	s := IOSummary{
		FromAddresses: from,
		ToAddresses:   to,
		IsCoinbase:    len(tx.Inputs) == 0,
		SelfTransfer:  seenFrom[address] && seenTo[address],
	}
	if s.IsCoinbase {
		return s
	}

	if fee := totalIn - totalOut; fee > 0 {
		s.Fee = fee
	}
	s.Change = change
	if others := sentFrom - max(int64(0), change); others > 0 {
		s.ToOthers = others
	}
	return s
}
