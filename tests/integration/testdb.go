// Package integration holds end to end tests that exercise the escrow
// services against a real PostgreSQL instance managed by testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// The shared container is started once per package and torn down from
// TestMain via CleanupSharedContainer.
var sharedEnv struct {
	sync.Mutex
	container testcontainers.Container
	dsn       string
}

// TestDB bundles the connections a test needs against the database.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// startPostgres launches a PostgreSQL container and returns it together
// with its DSN.
func startPostgres(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "read container connection string")

	return container, dsn
}

// NewTestDB creates an isolated PostgreSQL container for one test and
// migrates it. The container is terminated when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startPostgres(t, "factorline_test")
	db, sqlDB := dial(t, dsn)
	applyMigrations(t, sqlDB)

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(func() {
		tdb.SqlDB.Close()
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	return tdb
}

// NewSharedTestDB hands out a connection to a package wide container,
// starting and migrating it on first use. Tests are expected to call
// CleanTables before touching the database.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedEnv.Lock()
	defer sharedEnv.Unlock()

	if sharedEnv.container == nil {
		container, dsn := startPostgres(t, "factorline_shared_test")

		_, sqlDB := dial(t, dsn)
		applyMigrations(t, sqlDB)
		sqlDB.Close()

		sharedEnv.container = container
		sharedEnv.dsn = dsn
	}

	db, sqlDB := dial(t, sharedEnv.dsn)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: sharedEnv.container, DSN: sharedEnv.dsn, t: t}

	// The container outlives the test, only the connection is closed.
	t.Cleanup(func() { tdb.SqlDB.Close() })
	return tdb
}

// CleanupSharedContainer terminates the package wide container. Call it
// from TestMain after m.Run.
func CleanupSharedContainer() {
	sharedEnv.Lock()
	defer sharedEnv.Unlock()

	if sharedEnv.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedEnv.container.Terminate(ctx)
	sharedEnv.container = nil
	sharedEnv.dsn = ""
}

// CleanTables truncates every public table except schema_migrations.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "list tables")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("truncate %s: %v", table, err)
		}
	}
}

// dial opens a gorm connection with a small pool suitable for tests.
// Set TEST_DB_DEBUG to see the SQL.
func dial(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	logLevel := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	require.NoError(t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "access sql.DB handle")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// applyMigrations brings the database to the latest schema version.
func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "locate migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "run migrations")
	}
}

// findMigrationsPath walks up from this file looking for the migrations
// directory, falling back to the working directory.
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		dir := filepath.Dir(filename)
		for i := 0; i < 5; i++ {
			candidate := filepath.Join(dir, "migrations")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			dir = filepath.Dir(dir)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		candidate := filepath.Join(wd, up, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
