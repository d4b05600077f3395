package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source entities owned by the surrounding fleet CRUD system. The KPI
// engine only ever reads them.

type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Organization) TableName() string { return "organizations" }

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusIdle        VehicleStatus = "idle"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusRetired     VehicleStatus = "retired"
)

type Vehicle struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	OrgID          snowflake.ID  `gorm:"not null;index"`
	RegistrationNo string        `gorm:"type:text;not null"`
	Model          string        `gorm:"type:text"`
	Status         VehicleStatus `gorm:"type:text;not null;default:'active'"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Vehicle) TableName() string { return "vehicles" }

type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

type Driver struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	LicenseNo string       `gorm:"type:text"`
	Status    DriverStatus `gorm:"type:text;not null;default:'active'"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Driver) TableName() string { return "drivers" }

// Trip is one completed journey. Money fields are integer paise; display
// conversion to rupees happens only at formatting time.
type Trip struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	OrgID         snowflake.ID `gorm:"not null;index:idx_trips_org_started,priority:1"`
	VehicleID     snowflake.ID `gorm:"not null;index"`
	DriverID      snowflake.ID `gorm:"not null;index"`
	DistanceKm    float64      `gorm:"not null;default:0"`
	RevenueAmount int64        `gorm:"not null;default:0"`
	CostAmount    int64        `gorm:"not null;default:0"`
	FuelLitres    float64      `gorm:"not null;default:0"`
	StartedAt     time.Time    `gorm:"not null;index:idx_trips_org_started,priority:2"`
	EndedAt       *time.Time   `gorm:""`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Trip) TableName() string { return "trips" }

type MaintenanceTask struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	VehicleID   snowflake.ID `gorm:"not null;index"`
	Description string       `gorm:"type:text"`
	CostAmount  int64        `gorm:"not null;default:0"`
	Status      string       `gorm:"type:text;not null;default:'open'"`
	CompletedAt *time.Time   `gorm:"index"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MaintenanceTask) TableName() string { return "maintenance_tasks" }
