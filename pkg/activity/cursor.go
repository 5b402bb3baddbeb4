package activity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Cursor points at one grouped transaction in the deterministically
// ordered feed. The encoded form is opaque to callers.
type Cursor struct {
	Height  int64
	TxIndex int64
	Txid    string
}

var errBadCursor = errors.New("invalid cursor")

// Encode renders the cursor as a URL-safe opaque string.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%d:%d:%s", c.Height, c.TxIndex, c.Txid)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an encoded cursor. A malformed cursor is a caller
// error; a well-formed cursor that no longer matches any entry is
// handled later by restarting from the top of the feed.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, errBadCursor
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Cursor{}, errBadCursor
	}
	height, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, errBadCursor
	}
	txIndex, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, errBadCursor
	}
	return Cursor{Height: height, TxIndex: txIndex, Txid: parts[2]}, nil
}
