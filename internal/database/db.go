package database

import (
	"fmt"

	"chronic_go_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     logger.LogLevel
}

// Open connects to the configured database. The handle is owned by the caller;
// there is no package-level connection.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrgMembership{},
		&models.Workspace{},
		&models.WorkspaceMembership{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.ProjectStatus{},
		&models.ProjectSection{},
		&models.Tag{},
		&models.Task{},
		&models.Comment{},
		&models.ProjectTag{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	// tag names are unique per workspace regardless of case
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS uq_ws_tag_name_ci ON tags (workspace_id, lower(name))").Error
}

// OpenInMemory returns a migrated SQLite database private to the caller.
// Used by tests and local development.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(Options{Driver: "sqlite", DSN: "file::memory:?_foreign_keys=on", LogLevel: logger.Silent})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every pooled connection would otherwise see its own empty database
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
