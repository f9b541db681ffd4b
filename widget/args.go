//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package widget

// argString returns the first non-empty string found under the given
// keys. Handlers accept both the wire spelling of their schema and the
// canonical metadata spelling merged in by the dispatcher.
func argString(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := args[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func argBool(args map[string]any, keys ...string) bool {
	for _, k := range keys {
		if b, ok := args[k].(bool); ok {
			return b
		}
	}
	return false
}

// argInt tolerates the float64 shape JSON decoding produces.
func argInt(args map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := args[k].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}

// argStrings flattens a []any or []string argument.
func argStrings(args map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := args[k].(type) {
		case []string:
			if len(v) > 0 {
				return v
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
