package paramschema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParamsDateAutoDefault(t *testing.T) {
	schema := map[string]Entry{
		"start": {Type: "date"},
		"end":   {Type: "date"},
	}
	result, err := ResolveParams(schema, nil, nil)
	require.NoError(t, err)

	today := time.Now().UTC()
	wantStart := today.AddDate(0, 0, -30).Format(dateLayout)
	wantEnd := today.Format(dateLayout)
	assert.Equal(t, wantStart, result["start"])
	assert.Equal(t, wantEnd, result["end"])
}

func TestResolveParamsPrecedenceProvidedOverDefault(t *testing.T) {
	schema := map[string]Entry{"limit": {Type: "number"}}
	result, err := ResolveParams(schema, map[string]any{"limit": 10.0}, map[string]any{"limit": 5.0})
	require.NoError(t, err)
	assert.Equal(t, float64(5), result["limit"])
}

func TestResolveParamsRequiredMissingFails(t *testing.T) {
	schema := map[string]Entry{"company": {Type: "string", Required: true}}
	_, err := ResolveParams(schema, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company")
}

func TestResolveParamsNumberCoercesFromString(t *testing.T) {
	schema := map[string]Entry{"limit": {Type: "number"}}
	result, err := ResolveParams(schema, nil, map[string]any{"limit": "42"})
	require.NoError(t, err)
	assert.Equal(t, float64(42), result["limit"])
}

func TestResolveParamsNumberEnforcesRange(t *testing.T) {
	min := 1.0
	max := 10.0
	schema := map[string]Entry{"limit": {Type: "number", Minimum: &min, Maximum: &max}}
	_, err := ResolveParams(schema, nil, map[string]any{"limit": 20.0})
	require.Error(t, err)
}

func TestResolveParamsBooleanCoercion(t *testing.T) {
	schema := map[string]Entry{"active": {Type: "boolean"}}
	result, err := ResolveParams(schema, nil, map[string]any{"active": "true"})
	require.NoError(t, err)
	assert.Equal(t, true, result["active"])
}

func TestResolveParamsArraySplitsCommaString(t *testing.T) {
	schema := map[string]Entry{"statuses": {Type: "array", Items: &Entry{Type: "string"}}}
	result, err := ResolveParams(schema, nil, map[string]any{"statuses": "a, b, c"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, result["statuses"])
}

func TestResolveParamsArrayAutoDefaultFromItemsEnum(t *testing.T) {
	schema := map[string]Entry{
		"statuses": {Type: "array", Items: &Entry{Type: "string", Enum: []any{"open", "closed"}}},
	}
	result, err := ResolveParams(schema, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"open", "closed"}, result["statuses"])
}

func TestResolveParamsExtraParamsPassThrough(t *testing.T) {
	schema := map[string]Entry{"limit": {Type: "number"}}
	result, err := ResolveParams(schema, nil, map[string]any{"limit": 1.0, "extra": "kept"})
	require.NoError(t, err)
	assert.Equal(t, "kept", result["extra"])
}

func TestResolveParamsStringEnumRejectsUnknown(t *testing.T) {
	schema := map[string]Entry{"status": {Type: "string", Enum: []any{"a", "b"}}}
	_, err := ResolveParams(schema, nil, map[string]any{"status": "z"})
	require.Error(t, err)
}
