// Package snapshot persists KPI cards. The store is insert-only: a
// collision on the (org, metric, computed_at) bucket is a benign duplicate
// from an overlapping run, never a fatal conflict.
package snapshot

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
	Log  *zap.Logger
}

type Store struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

func New(p Params) *Store {
	return &Store{
		db:   p.DB,
		node: p.Node,
		log:  p.Log.Named("kpi.snapshot"),
	}
}

// Insert writes the snapshots one by one and returns how many rows were
// actually created. Duplicate-bucket rows are skipped silently; any other
// database error is returned and aborts the batch.
func (s *Store) Insert(ctx context.Context, snapshots []domain.Snapshot) (int, error) {
	created := 0
	for i := range snapshots {
		if snapshots[i].ID == 0 {
			snapshots[i].ID = s.node.Generate()
		}
		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&snapshots[i])
		if res.Error != nil {
			if db.IsDuplicateKeyErr(res.Error) {
				continue
			}
			return created, res.Error
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}

// LatestByOrg returns the most recent snapshot per metric key for one
// organization. Always org-filtered; there is no cross-tenant read path.
func (s *Store) LatestByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Snapshot, error) {
	var rows []domain.Snapshot
	err := s.db.WithContext(ctx).Raw(
		`SELECT k.*
		 FROM kpi_snapshots k
		 JOIN (
		   SELECT metric_key, MAX(computed_at) AS computed_at
		   FROM kpi_snapshots
		   WHERE org_id = ?
		   GROUP BY metric_key
		 ) latest
		   ON latest.metric_key = k.metric_key
		  AND latest.computed_at = k.computed_at
		 WHERE k.org_id = ?
		 ORDER BY k.metric_key ASC`,
		orgID,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveRunRecord persists the summary row for one aggregation run.
func (s *Store) SaveRunRecord(ctx context.Context, record *domain.RunRecord) error {
	if record.ID == 0 {
		record.ID = s.node.Generate()
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// RecentRuns returns the latest run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []domain.RunRecord
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var Module = fx.Module("kpi.snapshot",
	fx.Provide(New),
)
