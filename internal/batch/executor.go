package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/paramschema"
	"github.com/tesseract-hub/dashboard-gateway/internal/querytemplate"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
	"github.com/tesseract-hub/dashboard-gateway/internal/rowvalue"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantpool"
)

// errorRecorder narrows the metrics dependency to the one thing the
// executor needs, so tests can omit metrics entirely.
type errorRecorder interface {
	RecordBatchError(kind string)
}

// repository narrows internal/registry.Repository to what the batch
// executor needs, the same dependency-injection shape used by
// internal/device, so unit tests can supply an in-memory fake.
type repository interface {
	ActiveCharts(ctx context.Context, slugs []string) ([]registry.ChartMetadata, error)
	ActiveTables(ctx context.Context, slugs []string) ([]registry.TableMetadata, error)
}

// Executor runs batches of chart/table queries against a tenant database.
type Executor struct {
	repo    repository
	query   queryFunc
	metrics errorRecorder
	log     *logrus.Entry
}

// New builds an Executor backed by a live registry and tenant pool.
func New(repo *registry.Repository, pool *tenantpool.Registry, metrics errorRecorder) *Executor {
	return &Executor{
		repo:    repo,
		query:   poolQueryFunc(pool),
		metrics: metrics,
		log:     logrus.WithField("component", "batch.Executor"),
	}
}

func slugsOf(reqs []SlugRequest) []string {
	slugs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		slugs = append(slugs, r.Slug)
	}
	return slugs
}

func paramsOf(reqs []SlugRequest) map[string]map[string]any {
	out := make(map[string]map[string]any, len(reqs))
	for _, r := range reqs {
		out[r.Slug] = r.Params
	}
	return out
}

func (e *Executor) recordError(kind string) {
	if e.metrics != nil {
		e.metrics.RecordBatchError(kind)
	}
}

// Execute runs the full batch against the tenant identified by coords on
// behalf of principal, implementing spec.md §4.8's algorithm.
func (e *Executor) Execute(ctx context.Context, coords tenantdir.Coordinates, principal identity.Principal, req Request) (*Response, error) {
	resp := newResponse(coords.CompanyName)

	graphSlugs := slugsOf(req.Graphs)
	graphParams := paramsOf(req.Graphs)
	charts, err := e.repo.ActiveCharts(ctx, graphSlugs)
	if err != nil {
		return nil, err
	}

	tableSlugs := slugsOf(req.Tables)
	tableParams := paramsOf(req.Tables)
	tables, err := e.repo.ActiveTables(ctx, tableSlugs)
	if err != nil {
		return nil, err
	}

	wantsClientes := len(tableSlugs) == 0
	for _, s := range tableSlugs {
		if s == clientesSlug {
			wantsClientes = true
		}
	}
	if wantsClientes {
		hasClientes := false
		for _, t := range tables {
			if t.Slug == clientesSlug {
				hasClientes = true
			}
		}
		if !hasClientes {
			baseline, err := e.probeClientes(ctx, coords)
			if err != nil {
				return nil, err
			}
			if baseline != nil {
				tables = append(tables, *baseline)
				if _, explicit := tableParams[clientesSlug]; !explicit {
					tableParams[clientesSlug] = nil
				}
			}
		}
	}

	for _, chart := range charts {
		e.runOne(ctx, coords, principal, chart.Slug, chart.ID, chart.QueryTemplate,
			chart.ParamSchema, chart.DefaultParams, chart.AllowedRoles, graphParams[chart.Slug],
			resp.Datasets, resp.Debug, resp.Errors)
		resp.Graphics = append(resp.Graphics, GraphResponse{
			ID: chart.ID, Slug: chart.Slug, Title: chart.Title,
			Description: chart.Description, ResultShape: chart.ResultShape,
		})
	}
	for _, slug := range graphSlugs {
		if !matchedAny(charts, slug) {
			resp.Errors[slug] = "Gráfico/Tabela não encontrado ou inativo."
			e.recordError("not_found")
		}
	}

	for _, table := range tables {
		e.runOne(ctx, coords, principal, table.Slug, table.ID, table.QueryTemplate,
			table.ParamSchema, table.DefaultParams, table.AllowedRoles, tableParams[table.Slug],
			resp.TableRows, resp.TableDebug, resp.TableErrors)
		resp.Tables = append(resp.Tables, TableResponse{
			ID: table.ID, Slug: table.Slug, Title: table.Title, Description: table.Description,
			ColumnConfig: table.ColumnConfig, PrimaryKey: table.PrimaryKey, ResultShape: table.ResultShape,
		})
	}
	for _, slug := range tableSlugs {
		if !matchedAnyTable(tables, slug) {
			resp.TableErrors[slug] = "Gráfico/Tabela não encontrado ou inativo."
			e.recordError("not_found")
		}
	}

	return resp, nil
}

func matchedAny(charts []registry.ChartMetadata, slug string) bool {
	for _, c := range charts {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

func matchedAnyTable(tables []registry.TableMetadata, slug string) bool {
	for _, t := range tables {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

// runOne executes a single chart/table's query, recording either a dataset
// entry or a per-slug error — it never returns an error itself, per
// spec.md §4.8's "per-slug failures never abort the batch" rule.
func (e *Executor) runOne(
	ctx context.Context,
	coords tenantdir.Coordinates,
	principal identity.Principal,
	slug string,
	id int64,
	queryTemplate string,
	rawSchema registry.JSONMap,
	rawDefaults registry.JSONMap,
	allowedRoles registry.StringArray,
	provided map[string]any,
	dataset map[int64][]map[string]any,
	debug map[int64]Debug,
	errs map[string]string,
) {
	if queryTemplate == "" {
		errs[slug] = "Query template vazio."
		e.recordError("validation")
		return
	}

	if len(allowedRoles) > 0 && !rolesIntersect(allowedRoles, principal.Roles) {
		errs[slug] = "Usuário não possui permissão para acessar este recurso."
		e.recordError("role")
		return
	}

	schema, err := decodeSchema(rawSchema)
	if err != nil {
		errs[slug] = fmt.Sprintf("Schema de parâmetros inválido: %v", err)
		e.recordError("validation")
		return
	}
	defaults := map[string]any(rawDefaults)

	params, err := paramschema.ResolveParams(schema, defaults, provided)
	if err != nil {
		errs[slug] = err.Error()
		e.recordError("validation")
		return
	}

	isArray := func(name string) bool {
		if entry, ok := schema[name]; ok && entry.Type == "array" {
			return true
		}
		v, ok := params[name]
		return ok && reflect.ValueOf(v).Kind() == reflect.Slice
	}

	stmt, err := querytemplate.Compile(queryTemplate, params, isArray)
	if err != nil {
		errs[slug] = err.Error()
		e.recordError("template")
		return
	}

	columns, rows, err := e.query(ctx, coords, stmt.Text, stmt.Args)
	if err != nil {
		errs[slug] = err.Error()
		e.recordError("execution")
		return
	}

	sanitized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(row) {
				record[col] = rowvalue.Normalize(row[i])
			}
		}
		sanitized = append(sanitized, record)
	}

	dataset[id] = sanitized

	var sample any
	if len(sanitized) > 0 {
		sample = sanitized[0]
	}
	debug[id] = Debug{
		Slug: slug, Params: params, Query: stmt.Text, Args: stmt.Args,
		RowCount: len(sanitized), Sample: sample,
	}
}

func rolesIntersect(allowed registry.StringArray, roles map[string]struct{}) bool {
	for _, r := range allowed {
		if _, ok := roles[r]; ok {
			return true
		}
	}
	return false
}

// decodeSchema converts a metadata row's raw jsonb param_schema into typed
// paramschema.Entry values via a JSON round-trip — the schema's on-disk
// shape already matches paramschema.Entry's json tags field for field.
func decodeSchema(raw registry.JSONMap) (map[string]paramschema.Entry, error) {
	if len(raw) == 0 {
		return map[string]paramschema.Entry{}, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var schema map[string]paramschema.Entry
	if err := json.Unmarshal(encoded, &schema); err != nil {
		return nil, err
	}
	return schema, nil
}
