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
	"github.com/fleetworks/odometer/internal/server"
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
		server.Module,
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
