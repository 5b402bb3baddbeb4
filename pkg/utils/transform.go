package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Dedup trims trailing slashes and removes duplicates, preserving order.
func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// ToNumber coerces loosely typed JSON scalars to float64. Node RPC
// implementations are not consistent about numeric encoding, so strings
// and json.Number are accepted; anything else falls back to def.
func ToNumber(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return def
}

// ToString coerces loosely typed JSON scalars to string, falling back to def.
func ToString(v any, def string) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return def
}

// ToSatoshi coerces an amount field to an integer satoshi count.
// Fractional values are treated as whole-coin amounts and scaled by 1e8.
func ToSatoshi(v any) int64 {
	f := ToNumber(v, 0)
	if f != math.Trunc(f) {
		return int64(math.Round(f * 1e8))
	}
	return int64(f)
}
