// Package tenantpool maintains a bounded connection pool per tenant,
// opened lazily and cached by connection string, following the
// mutex-guarded lazy-map-of-external-resources idiom used throughout the
// pack's FDWManager.
package tenantpool

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
)

// Registry lazily opens and caches a bounded pool per tenant connection
// string, matching the teacher's FDWManager shape: a struct with a
// sync.RWMutex guarding a map of lazily-initialised external resources.
type Registry struct {
	mu          sync.RWMutex
	pools       map[string]*pgxpool.Pool
	defaultPort string
	maxConns    int32
}

// New builds a Registry. defaultPort is used when coordinates carry no
// explicit port (the engine's Coordinates type never does — port is
// always the configured default, overridable only via configuration).
func New(defaultPort string, maxConns int) *Registry {
	if maxConns <= 0 {
		maxConns = 5
	}
	return &Registry{
		pools:       make(map[string]*pgxpool.Pool),
		defaultPort: defaultPort,
		maxConns:    int32(maxConns),
	}
}

func (r *Registry) dsn(coords tenantdir.Coordinates) string {
	user := url.QueryEscape(coords.DBUser)
	pass := url.QueryEscape(coords.DBPassword)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, coords.Host, r.defaultPort, coords.DBName)
}

// poolFor returns the cached pool for coords, opening one if absent.
func (r *Registry) poolFor(ctx context.Context, coords tenantdir.Coordinates) (*pgxpool.Pool, error) {
	dsn := r.dsn(coords)

	r.mu.RLock()
	pool, ok := r.pools[dsn]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[dsn]; ok {
		return pool, nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apierr.Internal("falha ao preparar conexão com o tenant", err)
	}
	cfg.MaxConns = r.maxConns

	pool, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apierr.Internal("falha ao conectar ao banco do tenant", err)
	}
	r.pools[dsn] = pool
	return pool, nil
}

// WithTenantConnection acquires a pooled connection for coords and invokes
// fn with it, guaranteeing release on every exit path — normal return,
// error, or panic — via defer, re-panicking after release so the panic
// still reaches gin's own Recovery() middleware.
func (r *Registry) WithTenantConnection(ctx context.Context, coords tenantdir.Coordinates, fn func(conn *pgxpool.Conn) error) (err error) {
	pool, err := r.poolFor(ctx, coords)
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return apierr.Internal("falha ao obter conexão do pool do tenant", err)
	}
	defer func() {
		conn.Release()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	return fn(conn)
}

// Close releases every cached pool, intended for process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pool := range r.pools {
		pool.Close()
	}
	r.pools = make(map[string]*pgxpool.Pool)
}
