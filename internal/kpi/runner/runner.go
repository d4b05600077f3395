// Package runner coordinates one aggregation run: it lists active
// organizations, fans them out over a bounded worker pool, and collects a
// structured report. Organizations are fully isolated units of work; one
// failing never touches another's outcome.
package runner

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/clock"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/internal/kpi/snapshot"
	"github.com/fleetworks/odometer/internal/observability/metrics"
	"github.com/fleetworks/odometer/internal/runlock"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Generator is the card-producing side of the pipeline. Both the basic and
// comparative generators satisfy it.
type Generator interface {
	Generate(ctx context.Context, orgID snowflake.ID) ([]domain.Card, []domain.MetricError)
}

type Runner struct {
	cfg         Config
	reader      *reader.Reader
	basic       Generator
	comparative Generator
	store       *snapshot.Store
	locker      runlock.Locker
	clock       clock.Clock
	node        *snowflake.Node
	log         *zap.Logger
}

// orgResult is the outcome of one organization's unit of work, sent back
// over the results channel so workers share no mutable state.
type orgResult struct {
	failed       bool
	cardsCreated int
	errs         []domain.MetricError
}

// RunOnce executes a full aggregation pass over every active organization.
// The returned report is also persisted as a kpi_run_reports row.
func (r *Runner) RunOnce(ctx context.Context) (domain.RunReport, error) {
	agg := metrics.Aggregation()
	startedAt := r.clock.Now().UTC()
	report := domain.RunReport{RunID: r.node.Generate()}

	release, ok, err := r.locker.TryAcquire(ctx, r.cfg.LockTTL)
	if err != nil {
		r.log.Warn("run lock unavailable, proceeding unlocked", zap.Error(err))
	} else if !ok {
		r.log.Info("aggregation run already in progress, skipping",
			zap.String("run_id", report.RunID.String()))
		agg.IncRunSkip()
		report.Skipped = true
		report.Success = true
		return report, nil
	} else {
		defer release()
	}

	agg.IncRun()
	defer func() {
		agg.ObserveRunDuration(r.clock.Now().UTC().Sub(startedAt))
	}()

	// All snapshots of one run share a minute bucket so overlapping
	// triggers collide on the unique key instead of double-writing.
	computedAt := startedAt.Truncate(time.Minute)

	orgIDs, err := r.reader.ListActiveOrgIDs(ctx)
	if err != nil {
		return report, err
	}

	r.log.Info("aggregation run started",
		zap.String("run_id", report.RunID.String()),
		zap.Int("organizations", len(orgIDs)),
		zap.Time("computed_at", computedAt),
	)

	jobs := make(chan snowflake.ID)
	results := make(chan orgResult)

	workers := r.cfg.Concurrency
	if workers > len(orgIDs) {
		workers = len(orgIDs)
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go func() {
			for orgID := range jobs {
				results <- r.processOrg(ctx, orgID, computedAt)
			}
		}()
	}
	// Every queued org yields exactly one result, so the collection loop
	// below always terminates; a cancelled ctx short-circuits inside
	// processOrg rather than here.
	go func() {
		defer close(jobs)
		for _, orgID := range orgIDs {
			jobs <- orgID
		}
	}()

	for range orgIDs {
		res := <-results
		report.OrgsProcessed++
		report.CardsCreated += res.cardsCreated
		report.Errors = append(report.Errors, res.errs...)
		if res.failed {
			report.OrgsFailed++
		}
	}

	report.Success = report.OrgsFailed == 0
	finishedAt := r.clock.Now().UTC()

	record := &domain.RunRecord{
		ID:            report.RunID,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		OrgsProcessed: report.OrgsProcessed,
		OrgsFailed:    report.OrgsFailed,
		CardsCreated:  report.CardsCreated,
		ErrorCount:    len(report.Errors),
		Detail:        runDetail(report),
	}
	if err := r.store.SaveRunRecord(ctx, record); err != nil {
		r.log.Warn("run record persistence failed",
			zap.String("run_id", report.RunID.String()), zap.Error(err))
	}

	r.log.Info("aggregation run finished",
		zap.String("run_id", report.RunID.String()),
		zap.Bool("success", report.Success),
		zap.Int("orgs_processed", report.OrgsProcessed),
		zap.Int("orgs_failed", report.OrgsFailed),
		zap.Int("cards_created", report.CardsCreated),
		zap.Int("metric_errors", len(report.Errors)),
		zap.Duration("duration", finishedAt.Sub(startedAt)),
	)
	return report, nil
}

// processOrg runs both generators for one organization under its own
// timeout and error boundary. Nothing is persisted when the tenant guard
// trips or the org's base data cannot be resolved.
func (r *Runner) processOrg(parent context.Context, orgID snowflake.ID, computedAt time.Time) orgResult {
	agg := metrics.Aggregation()
	ctx, cancel := context.WithTimeout(parent, r.cfg.OrgTimeout)
	defer cancel()

	log := r.log.With(zap.String("org_id", orgID.String()))
	var res orgResult

	exists, err := r.reader.OrganizationExists(ctx, orgID)
	if err == nil && !exists {
		err = domain.ErrInvalidOrganization
	}
	if err != nil {
		log.Error("organization base data unresolvable", zap.Error(err))
		agg.IncOrgFailure(err)
		res.failed = true
		res.errs = append(res.errs, domain.MetricError{
			OrgID: orgID, MetricKey: "", Message: err.Error(),
		})
		return res
	}

	basicCards, basicErrs := r.basic.Generate(ctx, orgID)
	comparativeCards, comparativeErrs := r.comparative.Generate(ctx, orgID)

	res.errs = append(res.errs, basicErrs...)
	res.errs = append(res.errs, comparativeErrs...)
	for _, e := range res.errs {
		agg.IncMetricError(e.MetricKey)
	}

	cards := append(basicCards, comparativeCards...)

	// Tenant guard: every card must carry this unit of work's org id. A
	// mismatch means a computation crossed tenant boundaries; the org's
	// entire run aborts and nothing is persisted for it.
	for _, card := range cards {
		if card.OrgID != orgID {
			log.Error("tenant isolation violation, aborting organization",
				zap.String("metric_key", card.MetricKey),
				zap.String("card_org_id", card.OrgID.String()),
			)
			agg.IncOrgFailure(domain.ErrTenantIsolation)
			res.failed = true
			res.errs = append(res.errs, domain.MetricError{
				OrgID:     orgID,
				MetricKey: card.MetricKey,
				Message:   domain.ErrTenantIsolation.Error(),
			})
			return res
		}
	}

	if ctx.Err() != nil {
		log.Error("organization run timed out", zap.Error(ctx.Err()))
		agg.IncOrgFailure(ctx.Err())
		res.failed = true
		res.errs = append(res.errs, domain.MetricError{
			OrgID: orgID, Message: ctx.Err().Error(),
		})
		return res
	}

	snapshots := make([]domain.Snapshot, 0, len(cards))
	for _, card := range cards {
		snapshots = append(snapshots, domain.Snapshot{
			ID:         r.node.Generate(),
			OrgID:      card.OrgID,
			MetricKey:  card.MetricKey,
			Title:      card.Title,
			ValueHuman: card.ValueHuman,
			Payload:    datatypes.JSONMap(card.Payload),
			Theme:      card.Theme,
			ComputedAt: computedAt,
		})
	}

	created, err := r.store.Insert(ctx, snapshots)
	if err != nil {
		log.Error("snapshot persistence failed", zap.Error(err))
		agg.IncOrgFailure(err)
		res.failed = true
		res.errs = append(res.errs, domain.MetricError{
			OrgID: orgID, Message: err.Error(),
		})
		return res
	}

	agg.IncOrgProcessed()
	agg.AddSnapshotsWritten(created)
	res.cardsCreated = created
	return res
}

// RunForever runs the aggregation loop until ctx is cancelled. One pass
// fires immediately, then every RunInterval.
func (r *Runner) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error("aggregation run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runDetail(report domain.RunReport) datatypes.JSONMap {
	errs := make([]any, 0, len(report.Errors))
	for _, e := range report.Errors {
		errs = append(errs, map[string]any{
			"organization_id": e.OrgID.String(),
			"metric_key":      e.MetricKey,
			"message":         e.Message,
		})
	}
	return datatypes.JSONMap{
		"run_id":  report.RunID.String(),
		"skipped": report.Skipped,
		"errors":  errs,
	}
}
