package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Snapshot is one immutable, tenant-scoped KPI card row. New runs insert
// new rows with a new ComputedAt; rows are never updated in place.
type Snapshot struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_kpi_snapshot_bucket,priority:1" json:"organization_id"`
	MetricKey  string            `gorm:"type:text;not null;uniqueIndex:ux_kpi_snapshot_bucket,priority:2" json:"metric_key"`
	Title      string            `gorm:"type:text;not null" json:"title"`
	ValueHuman string            `gorm:"type:text;not null" json:"value_human"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Theme      string            `gorm:"type:text;not null" json:"theme"`
	ComputedAt time.Time         `gorm:"not null;uniqueIndex:ux_kpi_snapshot_bucket,priority:3" json:"computed_at"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Snapshot) TableName() string { return "kpi_snapshots" }

// RunRecord is the persisted summary of one aggregation run.
type RunRecord struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	StartedAt     time.Time         `gorm:"not null;index" json:"started_at"`
	FinishedAt    time.Time         `gorm:"not null" json:"finished_at"`
	OrgsProcessed int               `gorm:"not null;default:0" json:"orgs_processed"`
	OrgsFailed    int               `gorm:"not null;default:0" json:"orgs_failed"`
	CardsCreated  int               `gorm:"not null;default:0" json:"cards_created"`
	ErrorCount    int               `gorm:"not null;default:0" json:"error_count"`
	Detail        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"detail"`
}

func (RunRecord) TableName() string { return "kpi_run_reports" }
