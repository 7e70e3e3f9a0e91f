package querytemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arrayOf(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestCompileSimpleSubstitution(t *testing.T) {
	stmt, err := Compile("SELECT * FROM r WHERE id = {{id}}", map[string]any{"id": 7}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM r WHERE id = $1", stmt.Text)
	assert.Equal(t, []any{7}, stmt.Args)
}

func TestCompileMissingParamFails(t *testing.T) {
	_, err := Compile("SELECT * FROM r WHERE id = {{id}}", map[string]any{}, nil)
	require.Error(t, err)
}

func TestCompileArrayInRewrite(t *testing.T) {
	stmt, err := Compile(
		"SELECT * FROM r WHERE status IN ({{statuses}})",
		map[string]any{"statuses": []string{"a", "b"}},
		arrayOf("statuses"),
	)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM r WHERE status = ANY($1)", stmt.Text)
	assert.Equal(t, []any{[]string{"a", "b"}}, stmt.Args)
}

func TestCompileArrayNotInRewriteWithCast(t *testing.T) {
	stmt, err := Compile(
		"SELECT * FROM r WHERE quarto_id NOT IN ({{ids}}::int[])",
		map[string]any{"ids": []int{1, 2}},
		arrayOf("ids"),
	)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM r WHERE quarto_id <> ALL($1::int[])", stmt.Text)
	assert.Equal(t, []any{[]int{1, 2}}, stmt.Args)
}

func TestCompileNoMarkersLeftover(t *testing.T) {
	stmt, err := Compile("SELECT 1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", stmt.Text)
	assert.Empty(t, stmt.Args)
}

func TestArrayRewriteIdempotence(t *testing.T) {
	once := rewriteArrayOperators("WHERE status IN ($1)", "$1")
	twice := rewriteArrayOperators(once, "$1")
	assert.Equal(t, once, twice)
}

func TestInjectionResistance(t *testing.T) {
	payload := "'; DROP TABLE x;--"
	stmt, err := Compile("SELECT * FROM r WHERE name = {{name}}", map[string]any{"name": payload}, nil)
	require.NoError(t, err)
	assert.NotContains(t, stmt.Text, payload)
	assert.Contains(t, stmt.Args, payload)
}

func TestTemplateRoundTripArgCount(t *testing.T) {
	tpl := "SELECT * FROM r WHERE a = {{a}} AND b = {{b}}"
	stmt, err := Compile(tpl, map[string]any{"a": 1, "b": 2}, nil)
	require.NoError(t, err)
	assert.Len(t, stmt.Args, 2)
	assert.NotContains(t, stmt.Text, "{{")
}
