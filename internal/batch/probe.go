package batch

import (
	"context"

	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
)

const clientesSlug = "clientes"

// probeClientes checks whether the tenant database has a clientes table and,
// if so, which timestamp column it exposes for "last access" (preferring
// ultimo_acesso, falling back to created_at), synthesising a baseline
// TableMetadata row for it. A tenant database that lacks the table entirely
// yields (nil, nil): the caller simply omits the baseline table.
func (e *Executor) probeClientes(ctx context.Context, coords tenantdir.Coordinates) (*registry.TableMetadata, error) {
	_, rows, err := e.query(ctx, coords, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = 'clientes' AND column_name IN ('id', 'ultimo_acesso', 'created_at')
	`, nil)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if name, ok := row[0].(string); ok {
			present[name] = true
		}
	}

	if !present["id"] {
		return nil, nil
	}

	tsColumn := "created_at"
	if present["ultimo_acesso"] {
		tsColumn = "ultimo_acesso"
	}

	query := "SELECT id, nome, nome_recebido, whatsapp, paused, " + tsColumn + " AS last_access FROM clientes ORDER BY id DESC"

	return &registry.TableMetadata{
		ID:            0,
		Slug:          clientesSlug,
		Title:         "Clientes",
		Description:   "Tabela base de clientes do tenant.",
		QueryTemplate: query,
		IsActive:      true,
	}, nil
}
