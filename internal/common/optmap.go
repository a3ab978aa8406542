package common

import (
	"strconv"
	"strings"
)

// Options maps arrive from JSON decoders, websocket messages and CLI flags,
// so numbers may be float64, ints or strings.

// Bool reads a boolean option. Strings "true"/"false" are accepted.
func Bool(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		return false, false
	}
}

// Number reads a numeric option as float64.
func Number(m map[string]any, key string) (float64, bool) {
	switch n := m[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int reads a numeric option truncated to int.
func Int(m map[string]any, key string) (int, bool) {
	f, ok := Number(m, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String reads a string option.
func String(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Strings reads a list of strings. Non-string entries are skipped and a
// single string is treated as a comma separated list.
func Strings(m map[string]any, key string) ([]string, bool) {
	switch v := m[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, true
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, true
	default:
		return nil, false
	}
}

// Merge returns base overlaid with override. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
