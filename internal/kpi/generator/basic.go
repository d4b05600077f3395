package generator

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/clock"
	"github.com/fleetworks/odometer/internal/config"
	"github.com/fleetworks/odometer/internal/kpi/calc"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/internal/kpi/window"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type BasicParams struct {
	fx.In

	Reader *reader.Reader
	Clock  clock.Clock
	Holder *config.KPIConfigHolder
	Log    *zap.Logger
}

// Basic computes the absolute metrics: today, this-week, and month-to-date
// figures plus fleet utilization and the active-driver ratio.
type Basic struct {
	reader *reader.Reader
	clock  clock.Clock
	holder *config.KPIConfigHolder
	log    *zap.Logger
}

func NewBasic(p BasicParams) *Basic {
	return &Basic{
		reader: p.Reader,
		clock:  p.Clock,
		holder: p.Holder,
		log:    p.Log.Named("kpi.generator.basic"),
	}
}

func (g *Basic) Generate(ctx context.Context, orgID snowflake.ID) ([]domain.Card, []domain.MetricError) {
	now := g.clock.Now().UTC()
	kcfg := g.holder.Current()

	todayWin := window.Today(now)
	weekWin := window.ISOWeek(now)
	mtdWin := window.MonthToDate(now)

	stats := newTripStatsCache(g.reader, orgID)

	metrics := []metricFn{
		{domain.MetricTodayDistance, func() (domain.Card, error) {
			st, err := stats.get(ctx, todayWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricTodayDistance,
				Title:      "Distance today",
				Theme:      domain.ThemeDistance,
				ValueHuman: calc.Kilometres(st.DistanceKm),
				Payload: map[string]any{
					"distance_km": st.DistanceKm,
					"trip_count":  st.TripCount,
				},
			}, nil
		}},
		{domain.MetricTodayTrips, func() (domain.Card, error) {
			st, err := stats.get(ctx, todayWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricTodayTrips,
				Title:      "Trips today",
				Theme:      domain.ThemeTrips,
				ValueHuman: calc.Count(st.TripCount, "trips"),
				Payload: map[string]any{
					"trip_count": st.TripCount,
				},
			}, nil
		}},
		{domain.MetricWeekDistance, func() (domain.Card, error) {
			st, err := stats.get(ctx, weekWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricWeekDistance,
				Title:      "Distance this week",
				Theme:      domain.ThemeDistance,
				ValueHuman: calc.Kilometres(st.DistanceKm),
				Payload: map[string]any{
					"distance_km": st.DistanceKm,
					"trip_count":  st.TripCount,
				},
			}, nil
		}},
		{domain.MetricMTDDistance, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricMTDDistance,
				Title:      "Distance this month",
				Theme:      domain.ThemeDistance,
				ValueHuman: calc.Kilometres(st.DistanceKm),
				Payload: map[string]any{
					"distance_km": st.DistanceKm,
					"trip_count":  st.TripCount,
				},
			}, nil
		}},
		{domain.MetricMTDTrips, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricMTDTrips,
				Title:      "Trips this month",
				Theme:      domain.ThemeTrips,
				ValueHuman: calc.Count(st.TripCount, "trips"),
				Payload: map[string]any{
					"trip_count": st.TripCount,
				},
			}, nil
		}},
		{domain.MetricMTDRevenue, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricMTDRevenue,
				Title:      "Revenue this month",
				Theme:      domain.ThemeRevenue,
				ValueHuman: calc.Rupees(st.RevenueAmount),
				Payload: map[string]any{
					"revenue_paise": st.RevenueAmount,
					"trip_count":    st.TripCount,
				},
			}, nil
		}},
		{domain.MetricMTDNetProfit, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			maintenance, err := g.reader.MaintenanceCost(ctx, orgID, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			profit := st.RevenueAmount - st.CostAmount - maintenance
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricMTDNetProfit,
				Title:      "Net profit this month",
				Theme:      domain.ThemeRevenue,
				ValueHuman: calc.Rupees(profit),
				Payload: map[string]any{
					"revenue_paise":     st.RevenueAmount,
					"trip_cost_paise":   st.CostAmount,
					"maintenance_paise": maintenance,
					"profit_paise":      profit,
				},
			}, nil
		}},
		{domain.MetricFleetUtilization, func() (domain.Card, error) {
			counts, err := g.reader.FleetCounts(ctx, orgID, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			pct := calc.Ratio(float64(counts.ActiveVehicles), float64(counts.TotalVehicles)) * 100
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricFleetUtilization,
				Title:      "Fleet utilization",
				Theme:      domain.ThemeUtilization,
				ValueHuman: calc.PercentOfWhole(pct),
				Payload: map[string]any{
					"active_vehicles":     counts.ActiveVehicles,
					"total_vehicles":      counts.TotalVehicles,
					"utilization_percent": pct,
				},
			}, nil
		}},
		{domain.MetricActiveDrivers, func() (domain.Card, error) {
			counts, err := g.reader.DriverCounts(ctx, orgID, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			pct := calc.Ratio(float64(counts.ActiveDrivers), float64(counts.TotalDrivers)) * 100
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricActiveDrivers,
				Title:      "Active drivers",
				Theme:      domain.ThemeUtilization,
				ValueHuman: calc.CountOfTotal(counts.ActiveDrivers, counts.TotalDrivers, "drivers"),
				Payload: map[string]any{
					"active_drivers": counts.ActiveDrivers,
					"total_drivers":  counts.TotalDrivers,
					"active_percent": pct,
				},
			}, nil
		}},
	}

	return runMetrics(g.log, kcfg, orgID, metrics)
}
