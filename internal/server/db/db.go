// Package db opens the relational backend behind the document store.
package db

import (
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	_ "github.com/inkhub/inkhub/internal/pkg/sqlite"
)

type Config struct {
	Dialect string `conf:"dialect" yaml:"dialect" json:"dialect"`
	DSN     string `conf:"dsn" yaml:"dsn" json:"dsn"`
	Debug   bool   `conf:"debug" yaml:"debug" json:"debug"`
}

// NewDriver opens a database handle for the configured dialect and wraps it
// in the dialect-aware driver the store builds statements against.
func NewDriver(cfg Config) (dialect.Driver, error) {
	var (
		sqlDB     *sql.DB
		dbDialect string
		err       error
	)

	switch cfg.Dialect {
	case "postgres", "pgx", "postgresdb", "pg", "postgresql":
		sqlDB, err = sql.Open("pgx", cfg.DSN)
		dbDialect = dialect.Postgres
	case "sqlite3", "sqlite":
		sqlDB, err = sql.Open("sqlite3", cfg.DSN)
		dbDialect = dialect.SQLite
	case "mysql", "tidb":
		sqlDB, err = sql.Open("mysql", cfg.DSN)
		dbDialect = dialect.MySQL
	default:
		return nil, fmt.Errorf("db: invalid dialect: %s", cfg.Dialect)
	}

	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Dialect, err)
	}

	var drv dialect.Driver = entsql.OpenDB(dbDialect, sqlDB)
	if cfg.Debug {
		drv = dialect.Debug(drv)
	}

	return drv, nil
}
