package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/adminpanel/apiserver/config"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName    = "sqlite"
	postgresDriverName  = "postgres"
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
	sqliteBusyTimeoutMS = 5000
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

// DB is a connection pool bound to one driver. Queries are written with
// postgres-style $N placeholders; Rebind adapts them for sqlite.
type DB struct {
	*sql.DB
	driver string
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New wraps an already opened pool.
func New(sqlDB *sql.DB, driver string) *DB {
	return &DB{DB: sqlDB, driver: driver}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Database.Path)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// OpenSQLite opens a sqlite database at path (":memory:" is accepted). The
// pool is limited to one connection: sqlite has a single writer and each
// in-memory connection would otherwise be a separate database.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, sqliteBusyTimeoutMS)
	}

	sqlDB, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := ping(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return New(sqlDB, config.DriverSQLite), nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open(postgresDriverName, PostgresURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	sqlDB.SetConnMaxIdleTime(defaultConnMaxIdle)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLife)
	sqlDB.SetMaxIdleConns(defaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(defaultMaxOpenConns)

	if err := ping(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return New(sqlDB, config.DriverPostgres), nil
}

func ping(ctx context.Context, sqlDB *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("verifying database connection: %w", err)
	}
	return nil
}

// PostgresURL builds a lib/pq connection URL from config.
func PostgresURL(cfg config.DatabaseConfig) string {
	sslmode := "disable"
	if cfg.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Driver returns the driver name the pool was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// Rebind rewrites $N placeholders to ? for sqlite. Placeholders must appear
// in argument order.
func (d *DB) Rebind(query string) string {
	if d.driver == config.DriverPostgres {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query against the pool.
func (d *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := d.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
