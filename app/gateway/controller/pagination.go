package controller

import (
	"net/http"
	"strconv"

	"github.com/blockvista/gateway/pkg/activity"
)

const defaultLimit = 25

var (
	errInvalidLimit  = &parseError{msg: "invalid limit"}
	errInvalidOffset = &parseError{msg: "invalid offset"}
	errInvalidCursor = &parseError{msg: "invalid cursor"}
	errInvalidRange  = &parseError{msg: "invalid range bound"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// parsePageParams reads the shared paging and filtering query
// parameters. A malformed cursor is rejected here; a well-formed but
// stale one is resolved leniently by the aggregator.
func parsePageParams(r *http.Request) (activity.PageParams, error) {
	qs := r.URL.Query()
	p := activity.PageParams{Limit: defaultLimit}

	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, errInvalidLimit
		}
		p.Limit = n
	}
	if v := qs.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errInvalidOffset
		}
		p.Offset = n
	}
	if v := qs.Get("cursor"); v != "" {
		cur, err := activity.DecodeCursor(v)
		if err != nil {
			return p, errInvalidCursor
		}
		p.Cursor = &cur
	}

	bounds := []struct {
		name string
		dst  *int64
	}{
		{"from_block", &p.FromBlock},
		{"to_block", &p.ToBlock},
		{"from", &p.FromTime},
		{"to", &p.ToTime},
	}
	for _, b := range bounds {
		if v := qs.Get(b.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return p, errInvalidRange
			}
			*b.dst = n
		}
	}
	return p, nil
}
