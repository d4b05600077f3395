// Package generator turns windowed aggregates into KPI cards. Generators
// never abort an organization on a single bad metric: each failure is
// logged, reported, and skipped so the remaining cards still compute.
package generator

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/config"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/internal/kpi/window"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// metricFn is one card computation. build runs against already-captured
// windows; any error it returns is recovered at the loop level.
type metricFn struct {
	key   string
	build func() (domain.Card, error)
}

func runMetrics(log *zap.Logger, cfg config.KPIConfig, orgID snowflake.ID, metrics []metricFn) ([]domain.Card, []domain.MetricError) {
	var (
		cards []domain.Card
		errs  []domain.MetricError
	)
	for _, m := range metrics {
		if cfg.MetricDisabled(m.key) {
			continue
		}
		card, err := m.build()
		if err != nil {
			log.Warn("metric computation failed",
				zap.String("org_id", orgID.String()),
				zap.String("metric_key", m.key),
				zap.Error(err),
			)
			errs = append(errs, domain.MetricError{
				OrgID:     orgID,
				MetricKey: m.key,
				Message:   err.Error(),
			})
			continue
		}
		cards = append(cards, card)
	}
	return cards, errs
}

// tripStatsCache memoizes the per-window trip aggregate so several metrics
// over the same window share one query. Single-goroutine use only; each
// organization is one unit of work.
type tripStatsCache struct {
	reader  *reader.Reader
	orgID   snowflake.ID
	entries map[window.Window]tripStatsEntry
}

type tripStatsEntry struct {
	stats reader.TripStats
	err   error
}

func newTripStatsCache(r *reader.Reader, orgID snowflake.ID) *tripStatsCache {
	return &tripStatsCache{
		reader:  r,
		orgID:   orgID,
		entries: make(map[window.Window]tripStatsEntry),
	}
}

func (c *tripStatsCache) get(ctx context.Context, w window.Window) (reader.TripStats, error) {
	if e, ok := c.entries[w]; ok {
		return e.stats, e.err
	}
	stats, err := c.reader.TripStats(ctx, c.orgID, w)
	c.entries[w] = tripStatsEntry{stats: stats, err: err}
	return stats, err
}

var Module = fx.Module("kpi.generator",
	fx.Provide(NewBasic),
	fx.Provide(NewComparative),
)
