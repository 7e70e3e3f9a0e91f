// Package batch implements the batch executor (C8): for every chart/table
// slug requested, it loads metadata, gates by role, resolves parameters,
// compiles the template, executes it against the tenant database, and
// sanitises the resulting rows, isolating per-slug failures from the rest
// of the batch.
package batch

import (
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
)

// SlugRequest is one requested chart or table, with its caller-supplied
// parameter bundle.
type SlugRequest struct {
	Slug   string         `json:"slug"`
	Params map[string]any `json:"params"`
}

// Request is the /fetchUserData request body.
type Request struct {
	Graphs []SlugRequest `json:"graphs"`
	Tables []SlugRequest `json:"tables"`
}

// Debug carries the per-slug execution trace echoed to the caller.
type Debug struct {
	Slug     string         `json:"slug"`
	Params   map[string]any `json:"params"`
	Query    string         `json:"query"`
	Args     []any          `json:"args"`
	RowCount int            `json:"rowCount"`
	Sample   any            `json:"sample,omitempty"`
}

// GraphResponse echoes a chart's descriptive metadata alongside its result.
type GraphResponse struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ResultShape registry.JSONMap `json:"result_shape,omitempty"`
}

// TableResponse echoes a table's descriptive metadata alongside its result.
type TableResponse struct {
	ID           int64           `json:"id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ColumnConfig registry.JSONMap `json:"column_config,omitempty"`
	PrimaryKey   string          `json:"primary_key,omitempty"`
	ResultShape  registry.JSONMap `json:"result_shape,omitempty"`
}

// Response is the full /fetchUserData response document (spec.md §4.8).
type Response struct {
	CompanyName string                     `json:"company_name"`
	Graphics    []GraphResponse            `json:"graphics"`
	Datasets    map[int64][]map[string]any `json:"datasets"`
	Debug       map[int64]Debug            `json:"debug"`
	Errors      map[string]string          `json:"errors"`
	Tables      []TableResponse            `json:"tables"`
	TableRows   map[int64][]map[string]any `json:"tableRows"`
	TableDebug  map[int64]Debug            `json:"tableDebug"`
	TableErrors map[string]string          `json:"tableErrors"`
}

func newResponse(companyName string) *Response {
	return &Response{
		CompanyName: companyName,
		Graphics:    []GraphResponse{},
		Datasets:    make(map[int64][]map[string]any),
		Debug:       make(map[int64]Debug),
		Errors:      make(map[string]string),
		Tables:      []TableResponse{},
		TableRows:   make(map[int64][]map[string]any),
		TableDebug:  make(map[int64]Debug),
		TableErrors: make(map[string]string),
	}
}
