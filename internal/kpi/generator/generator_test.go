package generator

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/clock"
	"github.com/fleetworks/odometer/internal/config"
	fleetdomain "github.com/fleetworks/odometer/internal/fleet/domain"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	basic       *Basic
	comparative *Comparative
	orgID       snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&fleetdomain.Organization{},
		&fleetdomain.Vehicle{},
		&fleetdomain.Driver{},
		&fleetdomain.Trip{},
		&fleetdomain.MaintenanceTask{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(testNow)
	log := zap.NewNop()
	r := reader.New(reader.Params{DB: conn, Log: log})
	holder := &config.KPIConfigHolder{}

	f := &fixture{
		db:    conn,
		node:  node,
		clock: fakeClock,
		basic: NewBasic(BasicParams{
			Reader: r, Clock: fakeClock, Holder: holder, Log: log,
		}),
		comparative: NewComparative(ComparativeParams{
			Reader: r, Clock: fakeClock, Holder: holder, Log: log,
		}),
	}

	org := fleetdomain.Organization{ID: node.Generate(), Name: "acme", Active: true}
	require.NoError(t, conn.Create(&org).Error)
	f.orgID = org.ID
	return f
}

func (f *fixture) vehicle(t *testing.T, reg string) snowflake.ID {
	t.Helper()
	v := fleetdomain.Vehicle{ID: f.node.Generate(), OrgID: f.orgID, RegistrationNo: reg, Status: fleetdomain.VehicleStatusActive}
	require.NoError(t, f.db.Create(&v).Error)
	return v.ID
}

func (f *fixture) driver(t *testing.T, name string) snowflake.ID {
	t.Helper()
	d := fleetdomain.Driver{ID: f.node.Generate(), OrgID: f.orgID, Name: name, Status: fleetdomain.DriverStatusActive}
	require.NoError(t, f.db.Create(&d).Error)
	return d.ID
}

func (f *fixture) trip(t *testing.T, vehicleID, driverID snowflake.ID, startedAt time.Time, km float64, revenue, cost int64, fuel float64) {
	t.Helper()
	trip := fleetdomain.Trip{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		VehicleID:     vehicleID,
		DriverID:      driverID,
		DistanceKm:    km,
		RevenueAmount: revenue,
		CostAmount:    cost,
		FuelLitres:    fuel,
		StartedAt:     startedAt,
	}
	require.NoError(t, f.db.Create(&trip).Error)
}

func cardByKey(cards []domain.Card, key string) (domain.Card, bool) {
	for _, c := range cards {
		if c.MetricKey == key {
			return c, true
		}
	}
	return domain.Card{}, false
}

func TestBasic_DistanceWithoutRevenue(t *testing.T) {
	f := newFixture(t)
	vID := f.vehicle(t, "KA-01")
	dID := f.driver(t, "Asha")

	// 10 trips this month, 2089 km total, income not entered yet.
	at := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 9; i++ {
		f.trip(t, vID, dID, at.Add(time.Duration(i)*time.Hour), 200, 0, 0, 20)
	}
	f.trip(t, vID, dID, at.Add(10*time.Hour), 289, 0, 0, 25)

	cards, errs := f.basic.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	distance, ok := cardByKey(cards, domain.MetricMTDDistance)
	require.True(t, ok)
	assert.Equal(t, "2,089 km", distance.ValueHuman)

	revenue, ok := cardByKey(cards, domain.MetricMTDRevenue)
	require.True(t, ok)
	assert.Equal(t, "₹0", revenue.ValueHuman)

	trips, ok := cardByKey(cards, domain.MetricMTDTrips)
	require.True(t, ok)
	assert.Equal(t, "10 trips", trips.ValueHuman)
}

func TestBasic_EmptyOrgYieldsNeutralCards(t *testing.T) {
	f := newFixture(t)

	cards, errs := f.basic.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)
	require.NotEmpty(t, cards)

	for _, c := range cards {
		assert.NotEmpty(t, c.ValueHuman, "metric %s", c.MetricKey)
		assert.Equal(t, f.orgID, c.OrgID, "metric %s", c.MetricKey)
		assert.NotEmpty(t, c.Title, "metric %s", c.MetricKey)
		assert.NotEmpty(t, c.Theme, "metric %s", c.MetricKey)
	}

	utilization, ok := cardByKey(cards, domain.MetricFleetUtilization)
	require.True(t, ok)
	assert.Equal(t, "0%", utilization.ValueHuman)

	drivers, ok := cardByKey(cards, domain.MetricActiveDrivers)
	require.True(t, ok)
	assert.Equal(t, "0/0 drivers", drivers.ValueHuman)
}

func TestBasic_NetProfitSubtractsMaintenance(t *testing.T) {
	f := newFixture(t)
	vID := f.vehicle(t, "KA-01")
	dID := f.driver(t, "Asha")

	f.trip(t, vID, dID, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 100, 100000, 30000, 10)

	completed := time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)
	task := fleetdomain.MaintenanceTask{
		ID: f.node.Generate(), OrgID: f.orgID, VehicleID: vID,
		CostAmount: 20000, Status: "done", CompletedAt: &completed,
	}
	require.NoError(t, f.db.Create(&task).Error)

	cards, errs := f.basic.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	profit, ok := cardByKey(cards, domain.MetricMTDNetProfit)
	require.True(t, ok)
	// 1000 - 300 - 200 rupees
	assert.Equal(t, "₹500", profit.ValueHuman)
	assert.Equal(t, int64(50000), profit.Payload["profit_paise"])
}

func TestBasic_FleetUtilization(t *testing.T) {
	f := newFixture(t)
	dID := f.driver(t, "Asha")

	used := f.vehicle(t, "KA-01")
	f.vehicle(t, "KA-02")
	f.vehicle(t, "KA-03")
	f.vehicle(t, "KA-04")

	f.trip(t, used, dID, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 100, 0, 0, 10)

	cards, errs := f.basic.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	utilization, ok := cardByKey(cards, domain.MetricFleetUtilization)
	require.True(t, ok)
	assert.Equal(t, "25%", utilization.ValueHuman)
}

func TestComparative_FullDropAgainstPriorMonth(t *testing.T) {
	f := newFixture(t)
	vID := f.vehicle(t, "KA-01")
	dID := f.driver(t, "Asha")

	// 8,215 km in the prior month's equivalent window, nothing this month.
	f.trip(t, vID, dID, time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC), 8215, 500000, 100000, 800)

	cards, errs := f.comparative.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	distance, ok := cardByKey(cards, domain.MetricMTDDistanceVsLastMonth)
	require.True(t, ok)
	assert.Equal(t, "0 km (-100%)", distance.ValueHuman)
	assert.Equal(t, "down", distance.Payload["trend"])
	assert.Equal(t, false, distance.Payload["capped"])
}

func TestComparative_CappedGrowthFromZeroBaseline(t *testing.T) {
	f := newFixture(t)
	vID := f.vehicle(t, "KA-01")
	dID := f.driver(t, "Asha")

	// Revenue this month against an empty prior month.
	f.trip(t, vID, dID, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), 100, 250000, 0, 10)

	cards, errs := f.comparative.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	revenue, ok := cardByKey(cards, domain.MetricMTDRevenueVsLastMonth)
	require.True(t, ok)
	assert.Equal(t, "₹2,500 (+100%)", revenue.ValueHuman)
	assert.Equal(t, true, revenue.Payload["capped"])
	assert.Equal(t, "up", revenue.Payload["trend"])
}

func TestComparative_RankingTieBreak(t *testing.T) {
	f := newFixture(t)
	dID := f.driver(t, "Asha")

	v1 := f.vehicle(t, "V1")
	v2 := f.vehicle(t, "V2")
	v3 := f.vehicle(t, "V3")

	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	f.trip(t, v1, dID, at, 10, 500, 0, 1)
	f.trip(t, v2, dID, at, 10, 500, 0, 1)
	f.trip(t, v3, dID, at, 10, 300, 0, 1)

	for i := 0; i < 3; i++ {
		cards, errs := f.comparative.Generate(context.Background(), f.orgID)
		assert.Empty(t, errs)

		top, ok := cardByKey(cards, domain.MetricTopVehicleByProfit)
		require.True(t, ok)
		assert.Equal(t, "V1 (₹5)", top.ValueHuman)

		entries, ok := top.Payload["entries"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, entries, 3)
		assert.Equal(t, "V1", entries[0]["label"])
		assert.Equal(t, "V2", entries[1]["label"])
		assert.Equal(t, "V3", entries[2]["label"])
	}
}

func TestComparative_EmptyRankingIsNeutral(t *testing.T) {
	f := newFixture(t)

	cards, errs := f.comparative.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	top, ok := cardByKey(cards, domain.MetricTopVehicleByProfit)
	require.True(t, ok)
	assert.Equal(t, "No trips", top.ValueHuman)

	topDriver, ok := cardByKey(cards, domain.MetricTopDriverByProfit)
	require.True(t, ok)
	assert.Equal(t, "No trips", topDriver.ValueHuman)
}

func TestComparative_EfficiencyZeroDenominators(t *testing.T) {
	f := newFixture(t)
	vID := f.vehicle(t, "KA-01")
	dID := f.driver(t, "Asha")

	// Distance with no recorded fuel: efficiency resolves to 0, not an error.
	f.trip(t, vID, dID, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), 150, 0, 50000, 0)

	cards, errs := f.comparative.Generate(context.Background(), f.orgID)
	assert.Empty(t, errs)

	fuel, ok := cardByKey(cards, domain.MetricFuelEfficiency)
	require.True(t, ok)
	assert.Equal(t, "0.0 km/l", fuel.ValueHuman)

	costPerKm, ok := cardByKey(cards, domain.MetricCostPerKm)
	require.True(t, ok)
	// 50000 paise over 150 km
	assert.Equal(t, "₹3.3/km", costPerKm.ValueHuman)
}

func TestGenerate_DisabledMetricSkipped(t *testing.T) {
	f := newFixture(t)

	cards, errs := runMetrics(zap.NewNop(), config.KPIConfig{
		TopVehicles:     3,
		TopDrivers:      3,
		DisabledMetrics: []string{domain.MetricTodayTrips},
	}, f.orgID, []metricFn{
		{domain.MetricTodayTrips, func() (domain.Card, error) {
			t.Fatal("disabled metric must not run")
			return domain.Card{}, nil
		}},
	})
	assert.Empty(t, errs)
	assert.Empty(t, cards)
}

func TestRunMetrics_IsolatesFailures(t *testing.T) {
	f := newFixture(t)

	boom := assert.AnError
	cards, errs := runMetrics(zap.NewNop(), config.DefaultKPIConfig(), f.orgID, []metricFn{
		{"broken.metric", func() (domain.Card, error) {
			return domain.Card{}, boom
		}},
		{"working.metric", func() (domain.Card, error) {
			return domain.Card{
				OrgID: f.orgID, MetricKey: "working.metric",
				Title: "Working", Theme: domain.ThemeTrips, ValueHuman: "1 trip",
			}, nil
		}},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "broken.metric", errs[0].MetricKey)
	assert.Equal(t, f.orgID, errs[0].OrgID)

	require.Len(t, cards, 1)
	assert.Equal(t, "working.metric", cards[0].MetricKey)
}
