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

type ComparativeParams struct {
	fx.In

	Reader *reader.Reader
	Clock  clock.Clock
	Holder *config.KPIConfigHolder
	Log    *zap.Logger
}

// Comparative computes period-over-period deltas, profit rankings, and
// efficiency ratios. Prior windows cover the same elapsed span as the
// current ones so a partial period compares against an equally partial one.
type Comparative struct {
	reader *reader.Reader
	clock  clock.Clock
	holder *config.KPIConfigHolder
	log    *zap.Logger
}

func NewComparative(p ComparativeParams) *Comparative {
	return &Comparative{
		reader: p.Reader,
		clock:  p.Clock,
		holder: p.Holder,
		log:    p.Log.Named("kpi.generator.comparative"),
	}
}

func (g *Comparative) Generate(ctx context.Context, orgID snowflake.ID) ([]domain.Card, []domain.MetricError) {
	now := g.clock.Now().UTC()
	kcfg := g.holder.Current()

	weekWin := window.ISOWeek(now)
	priorWeekWin := window.PriorISOWeek(now)
	mtdWin := window.MonthToDate(now)
	priorMonthWin := window.PriorMonthEquivalent(now)

	stats := newTripStatsCache(g.reader, orgID)

	metrics := []metricFn{
		{domain.MetricMTDRevenueVsLastMonth, func() (domain.Card, error) {
			cur, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			prev, err := stats.get(ctx, priorMonthWin)
			if err != nil {
				return domain.Card{}, err
			}
			change := calc.PercentChange(float64(cur.RevenueAmount), float64(prev.RevenueAmount))
			return comparisonCard(orgID, domain.MetricMTDRevenueVsLastMonth,
				"Revenue vs last month", domain.ThemeRevenue,
				calc.WithChange(calc.Rupees(cur.RevenueAmount), change),
				float64(cur.RevenueAmount), float64(prev.RevenueAmount), change), nil
		}},
		{domain.MetricMTDDistanceVsLastMonth, func() (domain.Card, error) {
			cur, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			prev, err := stats.get(ctx, priorMonthWin)
			if err != nil {
				return domain.Card{}, err
			}
			change := calc.PercentChange(cur.DistanceKm, prev.DistanceKm)
			return comparisonCard(orgID, domain.MetricMTDDistanceVsLastMonth,
				"Distance vs last month", domain.ThemeDistance,
				calc.WithChange(calc.Kilometres(cur.DistanceKm), change),
				cur.DistanceKm, prev.DistanceKm, change), nil
		}},
		{domain.MetricWeekDistanceVsLastWeek, func() (domain.Card, error) {
			cur, err := stats.get(ctx, weekWin)
			if err != nil {
				return domain.Card{}, err
			}
			prev, err := stats.get(ctx, priorWeekWin)
			if err != nil {
				return domain.Card{}, err
			}
			change := calc.PercentChange(cur.DistanceKm, prev.DistanceKm)
			return comparisonCard(orgID, domain.MetricWeekDistanceVsLastWeek,
				"Distance vs last week", domain.ThemeDistance,
				calc.WithChange(calc.Kilometres(cur.DistanceKm), change),
				cur.DistanceKm, prev.DistanceKm, change), nil
		}},
		{domain.MetricWeekTripsVsLastWeek, func() (domain.Card, error) {
			cur, err := stats.get(ctx, weekWin)
			if err != nil {
				return domain.Card{}, err
			}
			prev, err := stats.get(ctx, priorWeekWin)
			if err != nil {
				return domain.Card{}, err
			}
			change := calc.PercentChange(float64(cur.TripCount), float64(prev.TripCount))
			return comparisonCard(orgID, domain.MetricWeekTripsVsLastWeek,
				"Trips vs last week", domain.ThemeTrips,
				calc.WithChange(calc.Count(cur.TripCount, "trips"), change),
				float64(cur.TripCount), float64(prev.TripCount), change), nil
		}},
		{domain.MetricTopVehicleByProfit, func() (domain.Card, error) {
			ranked, err := g.reader.TopVehiclesByProfit(ctx, orgID, mtdWin, kcfg.TopVehicles)
			if err != nil {
				return domain.Card{}, err
			}
			return rankingCard(orgID, domain.MetricTopVehicleByProfit,
				"Top vehicle by profit", ranked), nil
		}},
		{domain.MetricTopDriverByProfit, func() (domain.Card, error) {
			ranked, err := g.reader.TopDriversByProfit(ctx, orgID, mtdWin, kcfg.TopDrivers)
			if err != nil {
				return domain.Card{}, err
			}
			return rankingCard(orgID, domain.MetricTopDriverByProfit,
				"Top driver by profit", ranked), nil
		}},
		{domain.MetricFuelEfficiency, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			kmpl := calc.Ratio(st.DistanceKm, st.FuelLitres)
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricFuelEfficiency,
				Title:      "Fuel efficiency",
				Theme:      domain.ThemeFuel,
				ValueHuman: calc.KmPerLitre(kmpl),
				Payload: map[string]any{
					"distance_km":  st.DistanceKm,
					"fuel_litres":  st.FuelLitres,
					"km_per_litre": kmpl,
				},
			}, nil
		}},
		{domain.MetricCostPerKm, func() (domain.Card, error) {
			st, err := stats.get(ctx, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			maintenance, err := g.reader.MaintenanceCost(ctx, orgID, mtdWin)
			if err != nil {
				return domain.Card{}, err
			}
			totalCost := st.CostAmount + maintenance
			paisePerKm := calc.Ratio(float64(totalCost), st.DistanceKm)
			return domain.Card{
				OrgID:      orgID,
				MetricKey:  domain.MetricCostPerKm,
				Title:      "Cost per km",
				Theme:      domain.ThemeMaintenance,
				ValueHuman: calc.RupeesPerKm(paisePerKm),
				Payload: map[string]any{
					"trip_cost_paise":   st.CostAmount,
					"maintenance_paise": maintenance,
					"distance_km":       st.DistanceKm,
					"paise_per_km":      paisePerKm,
				},
			}, nil
		}},
	}

	return runMetrics(g.log, kcfg, orgID, metrics)
}

func comparisonCard(orgID snowflake.ID, key, title, theme, valueHuman string, current, previous float64, change calc.Change) domain.Card {
	return domain.Card{
		OrgID:      orgID,
		MetricKey:  key,
		Title:      title,
		Theme:      theme,
		ValueHuman: valueHuman,
		Payload: map[string]any{
			"current":        current,
			"previous":       previous,
			"change_percent": change.Percent,
			"capped":         change.Capped,
			"trend":          calc.TrendOf(change),
		},
	}
}

// rankingCard renders the top-ranked entity as the headline and carries the
// full ranking in the payload. An empty ranking is the neutral "No trips"
// state, never an error.
func rankingCard(orgID snowflake.ID, key, title string, ranked []reader.RankedEntity) domain.Card {
	entries := make([]map[string]any, 0, len(ranked))
	for i, r := range ranked {
		entries = append(entries, map[string]any{
			"rank":         i + 1,
			"id":           r.EntityID.String(),
			"label":        r.Label,
			"profit_paise": r.Profit,
			"distance_km":  r.DistanceKm,
			"trip_count":   r.TripCount,
		})
	}
	valueHuman := "No trips"
	if len(ranked) > 0 {
		valueHuman = ranked[0].Label + " (" + calc.Rupees(ranked[0].Profit) + ")"
	}
	return domain.Card{
		OrgID:      orgID,
		MetricKey:  key,
		Title:      title,
		Theme:      domain.ThemeRevenue,
		ValueHuman: valueHuman,
		Payload: map[string]any{
			"entries": entries,
		},
	}
}
