// Package server exposes the engine's external surface: the run
// entrypoint, the org-scoped snapshot read API, health, and metrics.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/fleetworks/odometer/internal/config"
	"github.com/fleetworks/odometer/internal/observability"
	"github.com/fleetworks/odometer/internal/observability/logger"
	"github.com/fleetworks/odometer/internal/observability/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type EngineParams struct {
	fx.In

	ObsConfig   observability.Config
	HTTPMetrics *metrics.HTTPMetrics
	KPI         *KPIHandler
}

func NewEngine(p EngineParams) *gin.Engine {
	if !p.ObsConfig.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{Debug: p.ObsConfig.Debug()}))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	p.KPI.Register(v1)

	return engine
}

func Start(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}
	log = log.Named("server")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(
		NewKPIHandler,
		NewEngine,
	),
	fx.Invoke(Start),
)
