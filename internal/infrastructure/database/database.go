package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured database and returns an ent driver plus
// its cleanup function.
func Open(cfg *config.Config, logger logrus.FieldLogger) (dialect.Driver, func(), error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dsn := cfg.DatabaseURL()

	var (
		rawDB *sql.DB
		name  string
		err   error
	)
	switch cfg.DatabaseDriver() {
	case config.DriverSQLite:
		rawDB, err = openSQLite(dsn)
		name = dialect.SQLite
	case config.DriverPostgres:
		rawDB, err = openDB("postgres", dsn)
		name = dialect.Postgres
	case config.DriverPgx:
		rawDB, err = openPgx(dsn, cfg.Database.LogSQL, logger)
		name = dialect.Postgres
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	var drv dialect.Driver = entsql.OpenDB(name, rawDB)
	if cfg.Database.LogSQL {
		sqlLogger := logger.WithField("component", "sql")
		drv = dialect.DebugWithContext(drv, func(_ context.Context, v ...any) {
			sqlLogger.Debug(v...)
		})
	}
	return drv, func() { _ = drv.Close() }, nil
}

func openDB(driver, dsn string) (*sql.DB, error) {
	rawDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := ping(rawDB); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return rawDB, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	rawDB, err := openDB("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	rawDB.SetMaxOpenConns(1)
	rawDB.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if _, err := rawDB.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return rawDB, nil
}

func openPgx(dsn string, logSQL bool, logger logrus.FieldLogger) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if logSQL {
		pgxLogger := logger.WithField("component", "pgx")
		connCfg.Tracer = &tracelog.TraceLog{
			Logger: tracelog.LoggerFunc(func(_ context.Context, lvl tracelog.LogLevel, msg string, data map[string]any) {
				pgxLogger.WithFields(logrus.Fields(data)).WithField("pgx_level", lvl.String()).Debug(msg)
			}),
			LogLevel: tracelog.LogLevelTrace,
		}
	}
	rawDB := stdlib.OpenDB(*connCfg)
	rawDB.SetMaxOpenConns(10)
	if err := ping(rawDB); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("ping pgx db: %w", err)
	}
	return rawDB, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
