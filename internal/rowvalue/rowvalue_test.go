package rowvalue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSafeInteger(t *testing.T) {
	assert.Equal(t, int64(42), Normalize(int64(42)))
}

func TestNormalizeBigIntegerBecomesString(t *testing.T) {
	big := int64(1) << 60
	got := Normalize(big)
	s, ok := got.(string)
	require.True(t, ok)
	assert.Equal(t, "1152921504606846976", s)
}

func TestNormalizeNegativeBigIntegerBecomesString(t *testing.T) {
	big := -(int64(1) << 60)
	got := Normalize(big)
	s, ok := got.(string)
	require.True(t, ok)
	assert.Equal(t, "-1152921504606846976", s)
}

func TestNormalizeTimestamp(t *testing.T) {
	ts := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	got := Normalize(ts)
	assert.Equal(t, "2025-01-15T10:30:00Z", got)
}

func TestNormalizeJSONBBytes(t *testing.T) {
	raw := []byte(`{"a":1,"b":[1,2,3]}`)
	got := Normalize(raw)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), m["a"])
	arr, ok := m["b"].([]any)
	require.True(t, ok)
	assert.Len(t, arr, 3)
}

func TestNormalizeInvalidJSONBytesFallsBackToString(t *testing.T) {
	got := Normalize([]byte("not json"))
	assert.Equal(t, "not json", got)
}

func TestNormalizeNestedStructureRecurses(t *testing.T) {
	big := int64(1) << 60
	nested := map[string]any{
		"id": big,
		"children": []any{
			map[string]any{"ts": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	got := Normalize(nested).(map[string]any)
	assert.Equal(t, "1152921504606846976", got["id"])
	children := got["children"].([]any)
	child := children[0].(map[string]any)
	assert.Equal(t, "2025-01-01T00:00:00Z", child["ts"])
}

func TestNormalizeRawMessage(t *testing.T) {
	got := Normalize(json.RawMessage(`[1,2,3]`))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, got)
}
