package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/lib/pq"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	auth "github.com/goliatone/go-token-auth"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config describes a database connection. config.Persistence satisfies it.
type Config interface {
	GetDebug() bool
	GetDriver() string
	GetServer() string
	GetPingTimeout() time.Duration
	GetOtelIdentifier() string
	GetMaxOpenConns() int
}

// DBConfig is a literal Config, handy for tools and tests
type DBConfig struct {
	Driver       string
	DSN          string
	Debug        bool
	MaxOpenConns int
	PingTimeout  time.Duration
}

func (c DBConfig) GetDebug() bool                { return c.Debug }
func (c DBConfig) GetDriver() string             { return c.Driver }
func (c DBConfig) GetServer() string             { return c.DSN }
func (c DBConfig) GetOtelIdentifier() string     { return "" }
func (c DBConfig) GetMaxOpenConns() int          { return c.MaxOpenConns }
func (c DBConfig) GetPingTimeout() time.Duration { return c.PingTimeout }

// Open connects to the configured database and returns a persistence
// client with the auth models registered.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	var (
		sqldb   *sql.DB
		dialect schema.Dialect
		err     error
	)

	dsn := cfg.GetServer()

	switch strings.ToLower(cfg.GetDriver()) {
	case DriverSQLite, "sqlite3", "":
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
		}
		if strings.Contains(dsn, ":memory:") {
			// every connection would get its own in memory database
			sqldb.SetMaxOpenConns(1)
		}
		dialect = sqlitedialect.New()
	case DriverPostgres, "pg":
		connector, cerr := pq.NewConnector(dsn)
		if cerr != nil {
			return nil, errors.Wrap(cerr, errors.CategoryInternal, "invalid postgres dsn")
		}
		sqldb = sql.OpenDB(connector)
		dialect = pgdialect.New()
	default:
		return nil, errors.New(fmt.Sprintf("unsupported database driver %q", cfg.GetDriver()), errors.CategoryValidation)
	}

	if n := cfg.GetMaxOpenConns(); n > 0 {
		sqldb.SetMaxOpenConns(n)
	}

	registerModels()

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create persistence client")
	}

	timeout := cfg.GetPingTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.DB().PingContext(pingCtx); err != nil {
		_ = client.DB().Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to connect to database")
	}

	return client, nil
}

var registerOnce sync.Once

func registerModels() {
	registerOnce.Do(func() {
		persistence.RegisterModel((*auth.Account)(nil))
		persistence.RegisterModel((*auth.RevokedToken)(nil))
	})
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
