// The aggregator binary runs the KPI aggregation loop without the HTTP
// surface. Deployments that trigger runs over HTTP use cmd/odometer
// instead.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fleetworks/odometer/internal/clock"
	"github.com/fleetworks/odometer/internal/config"
	"github.com/fleetworks/odometer/internal/kpi/generator"
	"github.com/fleetworks/odometer/internal/kpi/reader"
	"github.com/fleetworks/odometer/internal/kpi/runner"
	"github.com/fleetworks/odometer/internal/kpi/snapshot"
	"github.com/fleetworks/odometer/internal/migration"
	"github.com/fleetworks/odometer/internal/observability"
	"github.com/fleetworks/odometer/internal/runlock"
	"github.com/fleetworks/odometer/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		reader.Module,
		generator.Module,
		snapshot.Module,
		runlock.Module,
		runner.Module,

		// No server module.
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
