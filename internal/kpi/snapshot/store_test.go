package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var computedAt = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Snapshot{}, &domain.RunRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: conn, Node: node, Log: zap.NewNop()}), node
}

func snap(node *snowflake.Node, orgID snowflake.ID, key string, at time.Time) domain.Snapshot {
	return domain.Snapshot{
		ID:         node.Generate(),
		OrgID:      orgID,
		MetricKey:  key,
		Title:      "Title",
		ValueHuman: "10 trips",
		Payload:    datatypes.JSONMap{"trip_count": 10},
		Theme:      domain.ThemeTrips,
		ComputedAt: at,
	}
}

func TestInsert_CountsCreatedRows(t *testing.T) {
	store, node := newStore(t)
	orgID := node.Generate()

	created, err := store.Insert(context.Background(), []domain.Snapshot{
		snap(node, orgID, domain.MetricTodayTrips, computedAt),
		snap(node, orgID, domain.MetricTodayDistance, computedAt),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestInsert_DuplicateBucketIsBenign(t *testing.T) {
	store, node := newStore(t)
	orgID := node.Generate()

	first := []domain.Snapshot{snap(node, orgID, domain.MetricTodayTrips, computedAt)}
	created, err := store.Insert(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Overlapping run: same org, metric, and bucket with a fresh row id.
	second := []domain.Snapshot{snap(node, orgID, domain.MetricTodayTrips, computedAt)}
	created, err = store.Insert(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	latest, err := store.LatestByOrg(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, first[0].ID, latest[0].ID) // original row untouched
}

func TestInsert_SameMetricDifferentOrgsBothPersist(t *testing.T) {
	store, node := newStore(t)
	orgA := node.Generate()
	orgB := node.Generate()

	created, err := store.Insert(context.Background(), []domain.Snapshot{
		snap(node, orgA, domain.MetricTodayTrips, computedAt),
		snap(node, orgB, domain.MetricTodayTrips, computedAt),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestLatestByOrg_ReturnsNewestPerMetric(t *testing.T) {
	store, node := newStore(t)
	orgID := node.Generate()

	older := computedAt.Add(-4 * time.Hour)
	_, err := store.Insert(context.Background(), []domain.Snapshot{
		snap(node, orgID, domain.MetricTodayTrips, older),
		snap(node, orgID, domain.MetricTodayDistance, older),
	})
	require.NoError(t, err)

	newest := snap(node, orgID, domain.MetricTodayTrips, computedAt)
	_, err = store.Insert(context.Background(), []domain.Snapshot{newest})
	require.NoError(t, err)

	latest, err := store.LatestByOrg(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byKey := map[string]domain.Snapshot{}
	for _, s := range latest {
		byKey[s.MetricKey] = s
	}
	assert.Equal(t, newest.ID, byKey[domain.MetricTodayTrips].ID)
	assert.Equal(t, older.Unix(), byKey[domain.MetricTodayDistance].ComputedAt.Unix())
}

func TestLatestByOrg_TenantIsolation(t *testing.T) {
	store, node := newStore(t)
	orgA := node.Generate()
	orgB := node.Generate()

	_, err := store.Insert(context.Background(), []domain.Snapshot{
		snap(node, orgA, domain.MetricTodayTrips, computedAt),
		snap(node, orgB, domain.MetricTodayTrips, computedAt),
		snap(node, orgB, domain.MetricTodayDistance, computedAt),
	})
	require.NoError(t, err)

	latest, err := store.LatestByOrg(context.Background(), orgA)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, orgA, latest[0].OrgID)
}

func TestSaveRunRecordAndRecentRuns(t *testing.T) {
	store, _ := newStore(t)

	for i := 0; i < 3; i++ {
		record := &domain.RunRecord{
			StartedAt:     computedAt.Add(time.Duration(i) * time.Hour),
			FinishedAt:    computedAt.Add(time.Duration(i)*time.Hour + time.Minute),
			OrgsProcessed: 2,
			CardsCreated:  34,
			Detail:        datatypes.JSONMap{"skipped": false},
		}
		require.NoError(t, store.SaveRunRecord(context.Background(), record))
		assert.NotZero(t, record.ID)
	}

	runs, err := store.RecentRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}
