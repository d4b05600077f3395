package domain

// Metric keys are stable across runs; the dashboard reads the latest row
// per key.
const (
	MetricTodayDistance    = "today.distance"
	MetricTodayTrips       = "today.trips"
	MetricWeekDistance     = "week.distance"
	MetricMTDDistance      = "mtd.distance"
	MetricMTDTrips         = "mtd.trips"
	MetricMTDRevenue       = "mtd.revenue"
	MetricMTDNetProfit     = "mtd.net_profit"
	MetricFleetUtilization = "fleet.utilization"
	MetricActiveDrivers    = "fleet.active_drivers"

	MetricMTDRevenueVsLastMonth  = "comparison.mtd_revenue_vs_last_month"
	MetricMTDDistanceVsLastMonth = "comparison.mtd_distance_vs_last_month"
	MetricWeekDistanceVsLastWeek = "comparison.week_distance_vs_last_week"
	MetricWeekTripsVsLastWeek    = "comparison.week_trips_vs_last_week"
	MetricTopVehicleByProfit     = "rank.top_vehicle_by_profit"
	MetricTopDriverByProfit      = "rank.top_driver_by_profit"
	MetricFuelEfficiency         = "efficiency.fuel"
	MetricCostPerKm              = "efficiency.cost_per_km"
)

// Display category tags for the dashboard.
const (
	ThemeDistance    = "distance"
	ThemeTrips       = "trips"
	ThemeRevenue     = "revenue"
	ThemeFuel        = "fuel"
	ThemeUtilization = "utilization"
	ThemeMaintenance = "maintenance"
)

// Trend directions carried in comparison payloads.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)
