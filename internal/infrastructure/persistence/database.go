package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/factorline/backend/internal/infrastructure/config"
	"github.com/factorline/backend/internal/infrastructure/persistence/models"
)

// Database wraps the gorm connection handle.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens a connection with query logging silenced.
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithLogger opens a connection to the configured database,
// applies the pool settings and verifies the connection with a ping.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(dialectorFor(cfg), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		// Surface unique-constraint violations as gorm.ErrDuplicatedKey so
		// the repositories can map them to ErrAlreadyExists.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

func dialectorFor(cfg *config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "sqlite" {
		return sqlite.Open(cfg.DSN())
	}
	return postgres.Open(cfg.DSN())
}

// AutoMigrate creates or updates the schema from the persistence models.
// Production deployments use the versioned SQL migrations instead; this
// path serves sqlite and test databases.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(
		&models.InvoiceModel{},
		&models.TokenAccountModel{},
		&models.TransferModel{},
	)
}

// Ping reports whether the database connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("access sql.DB handle: %w", err)
	}
	return sqlDB.Ping()
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("access sql.DB handle: %w", err)
	}
	return sqlDB.Close()
}
