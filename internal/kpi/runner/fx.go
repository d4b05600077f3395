package runner

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/clock"
	appconfig "github.com/fleetworks/odometer/internal/config"
	"github.com/fleetworks/odometer/internal/kpi/generator"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/internal/kpi/snapshot"
	"github.com/fleetworks/odometer/internal/runlock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config      appconfig.Config
	Reader      *reader.Reader
	Basic       *generator.Basic
	Comparative *generator.Comparative
	Store       *snapshot.Store
	Locker      runlock.Locker
	Clock       clock.Clock
	Node        *snowflake.Node
	Log         *zap.Logger
}

func New(p Params) *Runner {
	return &Runner{
		cfg:         configFrom(p.Config),
		reader:      p.Reader,
		basic:       p.Basic,
		comparative: p.Comparative,
		store:       p.Store,
		locker:      p.Locker,
		clock:       p.Clock,
		node:        p.Node,
		log:         p.Log.Named("kpi.runner"),
	}
}

var Module = fx.Module("kpi.runner",
	fx.Provide(New),
	fx.Invoke(startLoop),
)

// startLoop ties RunForever to the fx lifecycle when AutoRun is enabled.
// Deployments driven by an external cron leave it off and call the HTTP
// entrypoint instead.
func startLoop(lc fx.Lifecycle, cfg appconfig.Config, r *Runner) {
	if !cfg.Aggregator.AutoRun {
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				r.RunForever(loopCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
