package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pm-service/internal/model"
	"pm-service/pkg/config"
)

// Open connects to PostgreSQL, configures the connection pool and runs
// migrations. The returned handle is the single shared resource of the
// service; callers pass it on explicitly instead of reaching for a global.
func Open(cfg *config.Config) (*gorm.DB, error) {
	logLevel := cfg.DB.LogLevel
	if logLevel == 0 {
		logLevel = logger.Info
	}

	// PreferSimpleProtocol disables implicit prepared statements, which
	// otherwise collide when the pool is shared across goroutines
	pgConfig := postgres.Config{
		DSN:                  cfg.DB.GetDSN(),
		PreferSimpleProtocol: true,
	}

	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey so handlers can answer 400 instead of 500
	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the table structure for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Customer{},
		&model.User{},
		&model.Project{},
		&model.Task{},
		&model.Comment{},
		&model.FileAttachment{},
		&model.AuditLog{},
	)
}
