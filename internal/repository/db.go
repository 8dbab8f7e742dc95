package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/ticket-wallet/internal/common"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

func ConfigFrom(c common.DatabaseConfig) Config {
	return Config(c)
}

// DB is the ledger handle. Postgres goes through a pgx pool wrapped as *sql.DB.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// DialectOf picks the driver for a DSN: postgres URLs use pgx, anything else
// is a SQLite path.
func DialectOf(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to the ledger and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect := DialectOf(cfg.DSN)
	logger.Info("connecting to database", "dialect", string(dialect), "dsn", redact(cfg.DSN))

	var (
		db  *DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = openPostgres(ctx, cfg)
	default:
		db, err = openSQLite(cfg)
	}
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("DB_CONNECT", "could not open ledger database", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}

	if err := migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		db.Close(logger)
		return nil, common.NewAppError("DB_MIGRATE", "could not apply ledger schema", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}

	logger.Info("successfully connected to database")
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "ticket-wallet"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool}, nil
}

func openSQLite(cfg Config) (*DB, error) {
	if dir := filepath.Dir(cfg.DSN); cfg.DSN != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	sqldb, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// one writer at a time
	sqldb.SetMaxOpenConns(1)
	if _, err := sqldb.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return &DB{SQL: sqldb, Dialect: DialectSQLite}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.SQL.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(q string) string {
	if db.Dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i > 0 {
		if j := strings.Index(dsn, "://"); j > 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

func migrate(ctx context.Context, db *DB) error {
	ts := "TIMESTAMP"
	if db.Dialect == DialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS issued_pass (
			id              TEXT PRIMARY KEY,
			serial          TEXT NOT NULL UNIQUE,
			barcode_message TEXT NOT NULL,
			category        TEXT NOT NULL,
			title           TEXT NOT NULL,
			event_time      TEXT NULL,
			source_path     TEXT NOT NULL,
			source_hash     TEXT NOT NULL,
			archive_path    TEXT NULL,
			status          TEXT NOT NULL,
			enrichment      TEXT NOT NULL,
			pass_json       TEXT NOT NULL,
			created_at      ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS issued_pass_created_at_idx ON issued_pass (created_at)`,
		`CREATE INDEX IF NOT EXISTS issued_pass_source_hash_idx ON issued_pass (source_hash)`,
	}
	for _, s := range stmts {
		if _, err := db.SQL.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
