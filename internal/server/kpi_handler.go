package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/kpi/domain"
	"github.com/fleetworks/odometer/internal/kpi/runner"
	"github.com/fleetworks/odometer/internal/kpi/snapshot"
	"github.com/fleetworks/odometer/internal/observability/logger"
	"github.com/fleetworks/odometer/internal/orgcontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type KPIHandlerParams struct {
	fx.In

	Runner *runner.Runner
	Store  *snapshot.Store
}

type KPIHandler struct {
	runner *runner.Runner
	store  *snapshot.Store
}

func NewKPIHandler(p KPIHandlerParams) *KPIHandler {
	return &KPIHandler{
		runner: p.Runner,
		store:  p.Store,
	}
}

func (h *KPIHandler) Register(rg *gin.RouterGroup) {
	kpi := rg.Group("/kpi")
	kpi.POST("/runs", h.triggerRun)
	kpi.GET("/runs", h.recentRuns)
	kpi.GET("/cards", requireOrg(), h.latestCards)
}

// triggerRun is the external cron entrypoint. It processes every active
// organization and reports the structured outcome.
func (h *KPIHandler) triggerRun(c *gin.Context) {
	report, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("aggregation run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation run failed"})
		return
	}

	errs := report.Errors
	if errs == nil {
		errs = []domain.MetricError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":        report.RunID.String(),
		"success":       report.Success,
		"skipped":       report.Skipped,
		"cards_created": report.CardsCreated,
		"errors":        errs,
	})
}

func (h *KPIHandler) recentRuns(c *gin.Context) {
	runs, err := h.store.RecentRuns(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// latestCards returns the newest snapshot per metric key for the caller's
// organization.
func (h *KPIHandler) latestCards(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing organization"})
		return
	}

	cards, err := h.store.LatestByOrg(c.Request.Context(), orgID)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("snapshot read failed",
			zap.String("org_id", orgID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot read failed"})
		return
	}
	if cards == nil {
		cards = []domain.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"organization_id": orgID.String(),
		"cards":           cards,
	})
}

// requireOrg resolves the tenant from the X-Org-ID header and stores it on
// the request context. Reads without a valid org are rejected outright.
func requireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Org-ID"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Org-ID header required"})
			return
		}
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid X-Org-ID"})
			return
		}
		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
