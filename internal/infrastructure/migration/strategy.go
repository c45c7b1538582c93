package migration

import (
	"database/sql"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/servora/servora/internal/infrastructure/persistence/models"
	sharedConfig "github.com/servora/servora/internal/shared/config"
	"github.com/servora/servora/internal/shared/logger"
)

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate executes the migration strategy
	Migrate(db *gorm.DB) error
	// GetName returns the strategy name
	GetName() string
}

// GooseStrategy applies the embedded SQL migrations of one driver.
type GooseStrategy struct {
	driver string
	logger logger.Interface
}

func NewGooseStrategy(driver string, log logger.Interface) *GooseStrategy {
	return &GooseStrategy{
		driver: driver,
		logger: log.With("component", "migration.goose"),
	}
}

// gooseDialect maps a database driver to the goose dialect name.
func gooseDialect(driver string) (string, error) {
	switch driver {
	case sharedConfig.DriverMySQL:
		return "mysql", nil
	case sharedConfig.DriverPostgres:
		return "postgres", nil
	case sharedConfig.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// ScriptsDir is the directory, relative to the repository root, holding the
// migrations of a driver.
func ScriptsDir(driver string) string {
	return path.Join("internal", "infrastructure", "migration", "scripts", driver)
}

func (s *GooseStrategy) prepare(db *gorm.DB) (*sql.DB, string, error) {
	dialect, err := gooseDialect(s.driver)
	if err != nil {
		return nil, "", err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(Scripts)
	if err := goose.SetDialect(dialect); err != nil {
		return nil, "", fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return sqlDB, path.Join("scripts", s.driver), nil
}

func (s *GooseStrategy) Migrate(db *gorm.DB) error {
	sqlDB, dir, err := s.prepare(db)
	if err != nil {
		return err
	}

	currentVersion, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		s.logger.Errorw("failed to get current version", "error", err)
		return fmt.Errorf("failed to get current version: %w", err)
	}

	s.logger.Infow("starting goose migration",
		"driver", s.driver,
		"version", currentVersion)

	if err := goose.Up(sqlDB, dir); err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed successfully",
		"from_version", currentVersion,
		"to_version", finalVersion)
	return nil
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

func (s *GooseStrategy) MigrateDown(db *gorm.DB, steps int) error {
	sqlDB, dir, err := s.prepare(db)
	if err != nil {
		return err
	}

	s.logger.Infow("starting down migration", "steps", steps)
	for i := 0; i < steps; i++ {
		if err := goose.Down(sqlDB, dir); err != nil {
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}

	s.logger.Infow("down migration completed successfully")
	return nil
}

func (s *GooseStrategy) GetVersion(db *gorm.DB) (int64, error) {
	sqlDB, _, err := s.prepare(db)
	if err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

func (s *GooseStrategy) Status(db *gorm.DB) error {
	sqlDB, dir, err := s.prepare(db)
	if err != nil {
		return err
	}

	if err := goose.Status(sqlDB, dir); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return nil
}

// Create writes a new SQL migration for the driver into dir on disk.
func (s *GooseStrategy) Create(dir, name string) error {
	dialect, err := gooseDialect(s.driver)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	s.logger.Infow("migration created successfully", "name", name, "dir", dir)
	return nil
}

// AutoMigrateStrategy creates and alters tables from the gorm models.
// Used for local sqlite runs where hand-written SQL adds nothing.
type AutoMigrateStrategy struct {
	logger logger.Interface
}

func NewAutoMigrateStrategy(log logger.Interface) *AutoMigrateStrategy {
	return &AutoMigrateStrategy{logger: log.With("component", "migration.automigrate")}
}

func (s *AutoMigrateStrategy) Migrate(db *gorm.DB) error {
	all := models.All()
	s.logger.Infow("starting gorm auto migration", "models_count", len(all))
	if err := db.AutoMigrate(all...); err != nil {
		s.logger.Errorw("auto migration failed", "error", err)
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

func (s *AutoMigrateStrategy) GetName() string {
	return "automigrate"
}
