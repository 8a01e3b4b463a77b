package tool

import (
	"encoding/json"
	"math"
	"unicode/utf8"
)

// MaxResponseLen bounds the text a tool returns to the model.
const MaxResponseLen = 16000

// TruncatedMessage is appended to clipped tool output.
const TruncatedMessage = "<response clipped><NOTE>To save on context only part of this file has been shown to you. " +
	"You should retry this tool after you have searched inside the file with `grep -n` in order to find the line " +
	"numbers of what you are looking for.</NOTE>"

// Truncate clips content to limit bytes, on a rune boundary, and appends
// TruncatedMessage. A non-positive limit disables truncation.
func Truncate(content string, limit int) string {
	if limit <= 0 || len(content) <= limit {
		return content
	}
	return ClipString(content, limit) + TruncatedMessage
}

// ClipString returns at most limit bytes of s without splitting a rune.
func ClipString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Has reports whether key is present with a non-null value.
func Has(args map[string]any, key string) bool {
	v, ok := args[key]
	return ok && v != nil
}

// String returns args[key] when it is a string.
func String(args map[string]any, key string) (string, bool) {
	s, ok := args[key].(string)
	return s, ok
}

// Bool returns args[key] when it is a boolean.
func Bool(args map[string]any, key string) (bool, bool) {
	b, ok := args[key].(bool)
	return b, ok
}

// Int returns args[key] when it holds an integral number. JSON decoding
// produces float64, so integral floats are accepted.
func Int(args map[string]any, key string) (int, bool) {
	return toInt(args[key])
}

// IntSlice returns args[key] when it is a list of integral numbers.
func IntSlice(args map[string]any, key string) ([]int, bool) {
	switch v := args[key].(type) {
	case []int:
		return v, true
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
