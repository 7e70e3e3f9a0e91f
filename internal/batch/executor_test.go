package batch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
)

// isProbeQuery reports whether sql is the clientes baseline probe's
// information_schema lookup, run automatically whenever a request omits
// explicit table slugs (spec.md §4.8) — tests that only exercise the graphs
// path need to not mistake this incidental probe call for their own query.
func isProbeQuery(sql string) bool {
	return strings.Contains(sql, "information_schema")
}

type fakeRepo struct {
	charts []registry.ChartMetadata
	tables []registry.TableMetadata
}

func (f *fakeRepo) ActiveCharts(ctx context.Context, slugs []string) ([]registry.ChartMetadata, error) {
	return filterCharts(f.charts, slugs), nil
}

func (f *fakeRepo) ActiveTables(ctx context.Context, slugs []string) ([]registry.TableMetadata, error) {
	return filterTables(f.tables, slugs), nil
}

func filterCharts(all []registry.ChartMetadata, slugs []string) []registry.ChartMetadata {
	if len(slugs) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		wanted[s] = true
	}
	var out []registry.ChartMetadata
	for _, c := range all {
		if wanted[c.Slug] {
			out = append(out, c)
		}
	}
	return out
}

func filterTables(all []registry.TableMetadata, slugs []string) []registry.TableMetadata {
	if len(slugs) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		wanted[s] = true
	}
	var out []registry.TableMetadata
	for _, t := range all {
		if wanted[t.Slug] {
			out = append(out, t)
		}
	}
	return out
}

func newTestExecutor(repo repository, query queryFunc) *Executor {
	return &Executor{repo: repo, query: query}
}

func principalWithRoles(roles ...string) identity.Principal {
	set := map[string]struct{}{"authenticated": {}}
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return identity.Principal{ID: "user-1", Roles: set}
}

func TestFailureIsolationAcrossMixedValiditySlugs(t *testing.T) {
	repo := &fakeRepo{
		charts: []registry.ChartMetadata{
			{ID: 1, Slug: "a", QueryTemplate: "SELECT * FROM t WHERE company = {{company}}",
				ParamSchema: registry.JSONMap{"company": map[string]any{"type": "string", "required": true}}},
			{ID: 2, Slug: "b", QueryTemplate: "SELECT * FROM t"},
		},
	}
	query := func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) ([]string, [][]any, error) {
		return []string{"id"}, [][]any{{int64(1)}}, nil
	}
	ex := newTestExecutor(repo, query)

	resp, err := ex.Execute(context.Background(), tenantdir.Coordinates{}, principalWithRoles(), Request{
		Graphs: []SlugRequest{{Slug: "a"}, {Slug: "b"}},
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Errors, "a")
	assert.Equal(t, "Parâmetro obrigatório ausente: company", resp.Errors["a"])
	assert.NotContains(t, resp.Errors, "b")
	assert.Contains(t, resp.Datasets, int64(2))
	assert.NotContains(t, resp.Datasets, int64(1))
}

func TestRoleGateBlocksExecutionEntirely(t *testing.T) {
	repo := &fakeRepo{
		charts: []registry.ChartMetadata{
			{ID: 1, Slug: "admin-only", QueryTemplate: "SELECT 1", AllowedRoles: registry.StringArray{"admin"}},
		},
	}
	called := false
	query := func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) ([]string, [][]any, error) {
		if isProbeQuery(sql) {
			return nil, nil, nil
		}
		called = true
		return []string{"id"}, [][]any{{int64(1)}}, nil
	}
	ex := newTestExecutor(repo, query)

	resp, err := ex.Execute(context.Background(), tenantdir.Coordinates{}, principalWithRoles("user"), Request{
		Graphs: []SlugRequest{{Slug: "admin-only"}},
	})
	require.NoError(t, err)

	assert.False(t, called)
	assert.NotContains(t, resp.Debug, int64(1))
	assert.Contains(t, resp.Errors, "admin-only")
}

func TestUnknownSlugRecordsNotFoundError(t *testing.T) {
	repo := &fakeRepo{}
	query := func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) ([]string, [][]any, error) {
		return nil, nil, nil
	}
	ex := newTestExecutor(repo, query)

	resp, err := ex.Execute(context.Background(), tenantdir.Coordinates{}, principalWithRoles(), Request{
		Graphs: []SlugRequest{{Slug: "missing"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Gráfico/Tabela não encontrado ou inativo.", resp.Errors["missing"])
}

func TestRowsAreSanitizedIntoDataset(t *testing.T) {
	repo := &fakeRepo{
		charts: []registry.ChartMetadata{
			{ID: 1, Slug: "chart", QueryTemplate: "SELECT id, total FROM t"},
		},
	}
	query := func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) ([]string, [][]any, error) {
		return []string{"id", "total"}, [][]any{{int64(1), int64(9007199254740993)}}, nil
	}
	ex := newTestExecutor(repo, query)

	resp, err := ex.Execute(context.Background(), tenantdir.Coordinates{}, principalWithRoles(), Request{
		Graphs: []SlugRequest{{Slug: "chart"}},
	})
	require.NoError(t, err)

	rows := resp.Datasets[1]
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "9007199254740993", rows[0]["total"])
}
