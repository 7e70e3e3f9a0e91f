// Package registry holds the gorm models and repositories for the central
// metadata registry: chart/table metadata, the tenant directory, device
// records, and login events. All are read through gorm.io/gorm, mirroring
// the teacher's internal/models + internal/repository split.
package registry

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONMap is a flexible jsonb-backed payload, following the teacher's
// models.JSONB custom-type idiom for heterogeneous column data.
type JSONMap map[string]any

// ChartMetadata is a row of graficos_dashboard.
type ChartMetadata struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	QueryTemplate  string         `gorm:"column:query_template" json:"query_template"`
	ParamSchema    JSONMap        `gorm:"column:param_schema;type:jsonb;serializer:json" json:"param_schema"`
	DefaultParams  JSONMap        `gorm:"column:default_params;type:jsonb;serializer:json" json:"default_params"`
	ResultShape    JSONMap        `gorm:"column:result_shape;type:jsonb;serializer:json" json:"result_shape"`
	AllowedRoles   StringArray    `gorm:"column:allowed_roles;type:text[]" json:"allowed_roles"`
	IsActive       bool           `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (ChartMetadata) TableName() string { return "graficos_dashboard" }

// TableMetadata is a row of dashboard_tables.
type TableMetadata struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	QueryTemplate  string         `gorm:"column:query_template" json:"query_template"`
	ColumnConfig   JSONMap        `gorm:"column:column_config;type:jsonb;serializer:json" json:"column_config"`
	ParamSchema    JSONMap        `gorm:"column:param_schema;type:jsonb;serializer:json" json:"param_schema"`
	DefaultParams  JSONMap        `gorm:"column:default_params;type:jsonb;serializer:json" json:"default_params"`
	ResultShape    JSONMap        `gorm:"column:result_shape;type:jsonb;serializer:json" json:"result_shape"`
	AllowedRoles   StringArray    `gorm:"column:allowed_roles;type:text[];default:'{user}'" json:"allowed_roles"`
	PrimaryKey     string         `gorm:"column:primary_key" json:"primary_key"`
	IsActive       bool           `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (TableMetadata) TableName() string { return "dashboard_tables" }

// TenantDirectoryRow is a row of db_info: the central registry's mapping
// from a principal id to tenant database coordinates.
type TenantDirectoryRow struct {
	IDUser      string `gorm:"column:id_user;primaryKey" json:"id_user"`
	DBHost      string `gorm:"column:db_host" json:"db_host"`
	DBName      string `gorm:"column:db_name" json:"db_name"`
	DBUser      string `gorm:"column:db_user" json:"db_user"`
	DBPassword  string `gorm:"column:db_password" json:"-"`
	CompanyName string `gorm:"column:company_name" json:"company_name"`
}

func (TenantDirectoryRow) TableName() string { return "db_info" }

// DeviceRecord is a row of security_user_devices: the device-approval state
// machine's persisted record.
type DeviceRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;index:idx_user_device,unique" json:"user_id"`
	DeviceID       string     `gorm:"column:device_id;index:idx_user_device,unique" json:"device_id"`
	DeviceName     string     `gorm:"column:device_name" json:"device_name"`
	UserAgent      string     `gorm:"column:user_agent" json:"user_agent"`
	IPAddress      string     `gorm:"column:ip_address" json:"ip_address"`
	Locale         string     `json:"locale"`
	Timezone       string     `json:"timezone"`
	Screen         string     `json:"screen"`
	Status         string     `gorm:"check:status IN ('pending','approved')" json:"status"`
	ApprovalToken  *string    `gorm:"column:approval_token" json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ConfirmedAt    *time.Time `gorm:"column:confirmed_at" json:"confirmed_at"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at" json:"last_seen_at"`
}

func (DeviceRecord) TableName() string { return "security_user_devices" }

// BeforeCreate assigns a surrogate id if absent, following the teacher's
// gorm BeforeCreate UUID hook idiom.
func (d *DeviceRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// LoginEvent is an append-only row of security_login_events.
type LoginEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid" json:"user_id"`
	DeviceID   string    `gorm:"column:device_id" json:"device_id"`
	DeviceName string    `gorm:"column:device_name" json:"device_name"`
	IPAddress  string    `gorm:"column:ip_address" json:"ip_address"`
	UserAgent  string    `gorm:"column:user_agent" json:"user_agent"`
	Locale     string    `json:"locale"`
	Timezone   string    `json:"timezone"`
	Metadata   JSONMap   `gorm:"type:jsonb;serializer:json" json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LoginEvent) TableName() string { return "security_login_events" }

// BeforeCreate assigns a surrogate id if absent.
func (e *LoginEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Customer shapes a row of clientes — tenant-owned data, never migrated by
// the central registry and never queried through gorm against the central
// handle. The code paths that touch clientes (the batch executor's baseline
// probe, /toggleCustomerPaused) query the tenant database directly and do
// not decode into this type.
type Customer struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID  `gorm:"column:uuid;type:uuid" json:"uuid"`
	Nome          string     `json:"nome"`
	NomeRecebido  string     `gorm:"column:nome_recebido" json:"nome_recebido"`
	Whatsapp      string     `gorm:"uniqueIndex" json:"whatsapp"`
	Paused        bool       `gorm:"default:false" json:"paused"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	UltimoAcesso  *time.Time `gorm:"column:ultimo_acesso" json:"ultimo_acesso"`
}

func (Customer) TableName() string { return "clientes" }
