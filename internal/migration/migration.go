// Package migration applies the embedded schema migrations on startup.
package migration

import (
	"embed"
	"errors"
	"strings"

	"github.com/fleetworks/odometer/internal/config"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// Run applies all pending migrations. Only the postgres dialect is
// migrated this way; sqlite test databases are created via AutoMigrate and
// skip this path.
func Run(cfg config.Config, gdb *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if strings.ToLower(cfg.DBType) != "postgres" {
		log.Info("skipping sql migrations for dialect", zap.String("dialect", cfg.DBType))
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationFS, "sql")
	if err != nil {
		return err
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.DBName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.Info("migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
