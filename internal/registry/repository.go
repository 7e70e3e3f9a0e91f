package registry

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), the condition spec.md §7 maps to Conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ErrNotFound is the sentinel the repository returns when a lookup finds no
// row, translated from gorm.ErrRecordNotFound at the repository boundary —
// the same translation the teacher's repositories perform.
var ErrNotFound = errors.New("registry: not found")

// Repository wraps the central registry's gorm handle.
type Repository struct {
	db *gorm.DB
}

// New constructs a Repository over an already-connected gorm handle.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for callers (e.g. migrations) that need
// it directly.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// ActiveCharts returns active chart metadata rows, optionally filtered by
// slug, ordered by ascending id.
func (r *Repository) ActiveCharts(ctx context.Context, slugs []string) ([]ChartMetadata, error) {
	var rows []ChartMetadata
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if len(slugs) > 0 {
		q = q.Where("slug IN ?", slugs)
	}
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveTables returns active table metadata rows, optionally filtered by
// slug, ordered by ascending id.
func (r *Repository) ActiveTables(ctx context.Context, slugs []string) ([]TableMetadata, error) {
	var rows []TableMetadata
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if len(slugs) > 0 {
		q = q.Where("slug IN ?", slugs)
	}
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LookupTenant reads exactly one db_info row keyed by the principal id.
func (r *Repository) LookupTenant(ctx context.Context, principalID string) (*TenantDirectoryRow, error) {
	var row TenantDirectoryRow
	err := r.db.WithContext(ctx).Where("id_user = ?", principalID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetDeviceByUserDevice returns the device record for (userID, deviceID).
func (r *Repository) GetDeviceByUserDevice(ctx context.Context, userID, deviceID string) (*DeviceRecord, error) {
	var row DeviceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetDeviceByToken resolves a single-use approval token to its device row.
func (r *Repository) GetDeviceByToken(ctx context.Context, token string) (*DeviceRecord, error) {
	var row DeviceRecord
	err := r.db.WithContext(ctx).
		Where("approval_token = ?", token).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertDevice inserts a device record, or on (user_id, device_id) conflict
// updates the mutable columns supplied, matching the conflict key spec'd
// for the device-approval store.
func (r *Repository) UpsertDevice(ctx context.Context, d *DeviceRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"device_name", "user_agent", "ip_address", "locale", "timezone",
			"screen", "status", "approval_token", "updated_at", "confirmed_at",
			"last_seen_at",
		}),
	}).Create(d).Error
}

// UpdateDevice applies a partial update by surrogate id.
func (r *Repository) UpdateDevice(ctx context.Context, id string, patch map[string]any) error {
	return r.db.WithContext(ctx).Model(&DeviceRecord{}).Where("id = ?", id).Updates(patch).Error
}

// RecordLoginEvent appends an audit row.
func (r *Repository) RecordLoginEvent(ctx context.Context, e *LoginEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// CreateChart inserts a chart metadata row, returning gorm's error as is;
// callers detect a duplicate slug with IsUniqueViolation.
func (r *Repository) CreateChart(ctx context.Context, c *ChartMetadata) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// CreateTable inserts a table metadata row.
func (r *Repository) CreateTable(ctx context.Context, t *TableMetadata) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// CreateTenantDirectory inserts the db_info row mapping a newly provisioned
// user to their tenant database coordinates.
func (r *Repository) CreateTenantDirectory(ctx context.Context, row *TenantDirectoryRow) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// ListCompanyNames returns distinct company names from the tenant
// directory, used by /listCompanies.
func (r *Repository) ListCompanyNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&TenantDirectoryRow{}).
		Distinct().Order("company_name ASC").Pluck("company_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// AutoMigrate creates/updates the registry tables, mirroring the teacher's
// main.go AutoMigrate step.
func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	// clientes is not migrated here: it is tenant-owned data living in each
	// tenant's own database (see internal/batch's clientes baseline probe),
	// not a central-registry table.
	models := []any{
		&TenantDirectoryRow{},
		&ChartMetadata{},
		&TableMetadata{},
		&DeviceRecord{},
		&LoginEvent{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return err
		}
	}
	return nil
}
