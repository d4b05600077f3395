// Package reader exposes the read-only aggregate queries the generators
// are built on. Every query is scoped by an explicit organization id and a
// window; aggregates are COALESCE'd so an empty source never yields an
// undefined result.
package reader

import (
	"context"

	"github.com/bwmarrin/snowflake"
	fleetdomain "github.com/fleetworks/odometer/internal/fleet/domain"
	"github.com/fleetworks/odometer/internal/kpi/window"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Reader struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) *Reader {
	return &Reader{
		db:  p.DB,
		log: p.Log.Named("kpi.reader"),
	}
}

// TripStats are the trip aggregates for one org and window. Zero-valued
// when no trips match.
type TripStats struct {
	TripCount     int64   `gorm:"column:trip_count"`
	DistanceKm    float64 `gorm:"column:distance_km"`
	RevenueAmount int64   `gorm:"column:revenue_amount"`
	CostAmount    int64   `gorm:"column:cost_amount"`
	FuelLitres    float64 `gorm:"column:fuel_litres"`
}

func (r *Reader) TripStats(ctx context.Context, orgID snowflake.ID, w window.Window) (TripStats, error) {
	var stats TripStats
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS trip_count,
		        COALESCE(SUM(distance_km), 0) AS distance_km,
		        COALESCE(SUM(revenue_amount), 0) AS revenue_amount,
		        COALESCE(SUM(cost_amount), 0) AS cost_amount,
		        COALESCE(SUM(fuel_litres), 0) AS fuel_litres
		 FROM trips
		 WHERE org_id = ? AND started_at >= ? AND started_at < ?`,
		orgID,
		w.Start,
		w.End,
	).Scan(&stats).Error
	if err != nil {
		return TripStats{}, err
	}
	return stats, nil
}

// MaintenanceCost sums completed maintenance spend for the window, in paise.
func (r *Reader) MaintenanceCost(ctx context.Context, orgID snowflake.ID, w window.Window) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(cost_amount), 0)
		 FROM maintenance_tasks
		 WHERE org_id = ? AND completed_at IS NOT NULL
		   AND completed_at >= ? AND completed_at < ?`,
		orgID,
		w.Start,
		w.End,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// FleetCounts reports fleet size and how many vehicles ran at least one
// trip inside the window.
type FleetCounts struct {
	TotalVehicles  int64 `gorm:"column:total_vehicles"`
	ActiveVehicles int64 `gorm:"column:active_vehicles"`
}

func (r *Reader) FleetCounts(ctx context.Context, orgID snowflake.ID, w window.Window) (FleetCounts, error) {
	var counts FleetCounts
	err := r.db.WithContext(ctx).Raw(
		`SELECT
		   (SELECT COUNT(*) FROM vehicles WHERE org_id = ? AND status <> ?) AS total_vehicles,
		   (SELECT COUNT(DISTINCT vehicle_id) FROM trips
		     WHERE org_id = ? AND started_at >= ? AND started_at < ?) AS active_vehicles`,
		orgID,
		fleetdomain.VehicleStatusRetired,
		orgID,
		w.Start,
		w.End,
	).Scan(&counts).Error
	if err != nil {
		return FleetCounts{}, err
	}
	return counts, nil
}

// DriverCounts reports roster size and how many drivers ran at least one
// trip inside the window.
type DriverCounts struct {
	TotalDrivers  int64 `gorm:"column:total_drivers"`
	ActiveDrivers int64 `gorm:"column:active_drivers"`
}

func (r *Reader) DriverCounts(ctx context.Context, orgID snowflake.ID, w window.Window) (DriverCounts, error) {
	var counts DriverCounts
	err := r.db.WithContext(ctx).Raw(
		`SELECT
		   (SELECT COUNT(*) FROM drivers WHERE org_id = ?) AS total_drivers,
		   (SELECT COUNT(DISTINCT driver_id) FROM trips
		     WHERE org_id = ? AND started_at >= ? AND started_at < ?) AS active_drivers`,
		orgID,
		orgID,
		w.Start,
		w.End,
	).Scan(&counts).Error
	if err != nil {
		return DriverCounts{}, err
	}
	return counts, nil
}

// RankedEntity is one row of a profit ranking. Ties on profit are broken
// by ascending entity id so repeated runs over identical data produce the
// same order.
type RankedEntity struct {
	EntityID   snowflake.ID `gorm:"column:entity_id"`
	Label      string       `gorm:"column:label"`
	Profit     int64        `gorm:"column:profit"`
	DistanceKm float64      `gorm:"column:distance_km"`
	TripCount  int64        `gorm:"column:trip_count"`
}

func (r *Reader) TopVehiclesByProfit(ctx context.Context, orgID snowflake.ID, w window.Window, limit int) ([]RankedEntity, error) {
	if limit <= 0 {
		limit = 1
	}
	var rows []RankedEntity
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.vehicle_id AS entity_id,
		        v.registration_no AS label,
		        COALESCE(SUM(t.revenue_amount - t.cost_amount), 0) AS profit,
		        COALESCE(SUM(t.distance_km), 0) AS distance_km,
		        COUNT(*) AS trip_count
		 FROM trips t
		 JOIN vehicles v ON v.id = t.vehicle_id AND v.org_id = t.org_id
		 WHERE t.org_id = ? AND t.started_at >= ? AND t.started_at < ?
		 GROUP BY t.vehicle_id, v.registration_no
		 ORDER BY profit DESC, t.vehicle_id ASC
		 LIMIT ?`,
		orgID,
		w.Start,
		w.End,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Reader) TopDriversByProfit(ctx context.Context, orgID snowflake.ID, w window.Window, limit int) ([]RankedEntity, error) {
	if limit <= 0 {
		limit = 1
	}
	var rows []RankedEntity
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.driver_id AS entity_id,
		        d.name AS label,
		        COALESCE(SUM(t.revenue_amount - t.cost_amount), 0) AS profit,
		        COALESCE(SUM(t.distance_km), 0) AS distance_km,
		        COUNT(*) AS trip_count
		 FROM trips t
		 JOIN drivers d ON d.id = t.driver_id AND d.org_id = t.org_id
		 WHERE t.org_id = ? AND t.started_at >= ? AND t.started_at < ?
		 GROUP BY t.driver_id, d.name
		 ORDER BY profit DESC, t.driver_id ASC
		 LIMIT ?`,
		orgID,
		w.Start,
		w.End,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OrganizationExists verifies the org's base data can be resolved at all.
func (r *Reader) OrganizationExists(ctx context.Context, orgID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM organizations WHERE id = ?`,
		orgID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListActiveOrgIDs returns every organization the run should process.
func (r *Reader) ListActiveOrgIDs(ctx context.Context) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT id FROM organizations WHERE active ORDER BY id ASC`,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var Module = fx.Module("kpi.reader",
	fx.Provide(New),
)
