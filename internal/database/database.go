package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

// Database is the SQL implementation of store.Store.
type Database struct {
	db      *gorm.DB
	dialect string
	log     *logrus.Entry
}

var _ store.Store = (*Database)(nil)

// Open connects using cfg.DatabaseURL, runs migrations and tunes the pool.
func Open(cfg config.Config, log logrus.FieldLogger) (*Database, error) {
	dialector, dialect, err := dialectorFor(cfg.DatabaseURL, cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	entry := logging.Module(log, "database")
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.Gorm(log, cfg.DBSlowQuery),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	entry.WithField("dialect", dialect).Info("database connected")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	entry.Info("database migrations completed")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get database handle")
	}
	if dialect == "sqlite" {
		// One writer keeps sqlite from returning SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Database{db: db, dialect: dialect, log: entry}, nil
}

// New wraps an already opened gorm handle. Migrations are not run.
func New(db *gorm.DB, log logrus.FieldLogger) *Database {
	return &Database{db: db, dialect: db.Dialector.Name(), log: logging.Module(log, "database")}
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Poll{},
		&models.Candidate{},
		&models.Vote{},
	)
	return errors.Wrap(err, "migrate database")
}

func dialectorFor(url, driver string) (gorm.Dialector, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.New(postgres.Config{
			DriverName: driver,
			DSN:        url,
		}), "postgres", nil
	case strings.HasPrefix(url, "sqlite://"):
		dsn := strings.TrimPrefix(url, "sqlite://")
		if !strings.Contains(dsn, "_pragma=busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)"
		}
		return sqlite.Open(dsn), "sqlite", nil
	}
	return nil, "", errors.Errorf("unsupported database url %q", url)
}

// DB exposes the gorm handle for tests and maintenance tasks.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Health checks the health of the database connection by pinging the database.
func (d *Database) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := map[string]string{"backend": "sql", "dialect": d.dialect}

	sqlDB, err := d.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	d.log.Info("disconnected from database")
	return sqlDB.Close()
}
