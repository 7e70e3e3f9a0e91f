// Package rowvalue normalises heterogeneous query-result values (big
// integers, timestamps, byte-encoded jsonb, nested arrays/maps) into
// JSON-safe Go values, modelling "value" as a tagged variant rather than
// relying on dynamic typing, per the sanitiser design notes.
package rowvalue

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// jsSafeIntegerLimit is the largest magnitude integer a JSON consumer can
// round-trip losslessly as a float64 (2^53).
const jsSafeIntegerLimit = int64(1) << 53

// Normalize recursively converts a driver-level value into one safe to
// marshal as JSON and consume by an untyped client:
//
//   - int64 within ±2^53 stays an int64; outside that range it becomes a
//     decimal string, since JSON numbers are unsafe for big integers.
//   - time.Time becomes an RFC3339 string.
//   - []byte (jsonb payloads) is unmarshalled and recursed into, falling
//     back to a string if it isn't valid JSON.
//   - []any and map[string]any are recursed into element-wise.
//   - everything else passes through unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64:
		return normalizeInt64(val)
	case int32:
		return normalizeInt64(int64(val))
	case int:
		return normalizeInt64(int64(val))
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []byte:
		return normalizeBytes(val)
	case json.RawMessage:
		return normalizeBytes([]byte(val))
	case json.Number:
		return normalizeJSONNumber(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	default:
		return val
	}
}

func normalizeInt64(n int64) any {
	if n > -jsSafeIntegerLimit && n < jsSafeIntegerLimit {
		return n
	}
	return strconv.FormatInt(n, 10)
}

func normalizeJSONNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return normalizeInt64(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func normalizeBytes(b []byte) any {
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return string(b)
	}
	return Normalize(decoded)
}
