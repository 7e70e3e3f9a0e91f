// Package tenantdir resolves a principal id to its tenant database
// coordinates via the central registry's db_info table.
package tenantdir

import (
	"context"
	"errors"

	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
)

// Coordinates are the tenant connection parameters, never mutated by the
// engine.
type Coordinates struct {
	Host        string
	DBName      string
	DBUser      string
	DBPassword  string
	CompanyName string
}

// Directory looks up tenant coordinates keyed by principal id.
type Directory struct {
	repo *registry.Repository
}

// New builds a Directory over the central registry repository.
func New(repo *registry.Repository) *Directory {
	return &Directory{repo: repo}
}

// Lookup reads exactly one row from the central registry keyed by the
// principal's id.
func (d *Directory) Lookup(ctx context.Context, principalID string) (Coordinates, error) {
	row, err := d.repo.LookupTenant(ctx, principalID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return Coordinates{}, apierr.NotFound("coordenadas do tenant não encontradas")
		}
		return Coordinates{}, apierr.Internal("falha ao consultar diretório de tenants", err)
	}
	return Coordinates{
		Host:        row.DBHost,
		DBName:      row.DBName,
		DBUser:      row.DBUser,
		DBPassword:  row.DBPassword,
		CompanyName: row.CompanyName,
	}, nil
}
