package batch

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantpool"
)

// queryFunc executes sql with args against the tenant identified by coords,
// returning column names and row values. It is the one seam the executor
// uses to reach the tenant database, kept as a function value so tests can
// substitute an in-memory fake without a live Postgres connection.
type queryFunc func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) (columns []string, rows [][]any, err error)

// poolQueryFunc builds a queryFunc backed by a tenant pool registry,
// following the WithTenantConnection acquire/release contract from
// internal/tenantpool.
func poolQueryFunc(pool *tenantpool.Registry) queryFunc {
	return func(ctx context.Context, coords tenantdir.Coordinates, sql string, args []any) ([]string, [][]any, error) {
		var columns []string
		var rows [][]any

		err := pool.WithTenantConnection(ctx, coords, func(conn *pgxpool.Conn) error {
			result, err := conn.Query(ctx, sql, args...)
			if err != nil {
				return apierr.Internal("falha ao executar consulta no tenant", err)
			}
			defer result.Close()

			for _, fd := range result.FieldDescriptions() {
				columns = append(columns, string(fd.Name))
			}
			for result.Next() {
				values, err := result.Values()
				if err != nil {
					return apierr.Internal("falha ao ler linha de resultado", err)
				}
				rowCopy := make([]any, len(values))
				copy(rowCopy, values)
				rows = append(rows, rowCopy)
			}
			return result.Err()
		})
		if err != nil {
			return nil, nil, err
		}
		return columns, rows, nil
	}
}
