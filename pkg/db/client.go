// Package db owns the gorm connection shared by every repository.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type Client struct {
	conn   *gorm.DB
	sqlite bool
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Open connects to Postgres, or to a local SQLite file when the
// SUPPLYDESK_USE_SQLITE flag is set.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return NewSQLite(ctx, cfg.DB, logg)
	}
	return New(ctx, cfg.DB, logg)
}

func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	conn, err := open(postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), cfg, logg, func(pool *sql.DB) {
		if cfg.MaxOpenConns > 0 {
			pool.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			pool.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	})
	if err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "postgres connection established")
	}
	return &Client{conn: conn}, nil
}

// NewSQLite opens a single-writer SQLite file and applies the embedded schema.
func NewSQLite(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"
	conn, err := open(sqlite.Open(dsn), cfg, logg, func(pool *sql.DB) { pool.SetMaxOpenConns(1) })
	if err != nil {
		return nil, err
	}
	if err := ApplySQLiteSchema(conn.WithContext(ctx)); err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "path", cfg.SQLitePath), "sqlite database ready")
	}
	return &Client{conn: conn, sqlite: true}, nil
}

func open(dialector gorm.Dialector, cfg config.DBConfig, logg *logger.Logger, tune func(*sql.DB)) (*gorm.DB, error) {
	gcfg := GormConfig()
	if logg != nil {
		gcfg.Logger = gormlogger.New(slowQueryWriter{logg}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		})
	}
	conn, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("%s pool: %w", dialector.Name(), err)
	}
	tune(pool)
	return conn, nil
}

// slowQueryWriter forwards gorm's warnings to the service logger.
type slowQueryWriter struct{ logg *logger.Logger }

func (w slowQueryWriter) Printf(format string, args ...any) {
	w.logg.Warn(context.Background(), fmt.Sprintf(format, args...))
}

// Wrap adopts an existing connection, as tests do.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn, sqlite: conn != nil && conn.Dialector.Name() == "sqlite"}
}

// GormConfig is silent, skips gorm's implicit write transactions and stamps
// times in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) IsSQLite() bool { return c.sqlite }

// SQLDB is the database/sql handle goose migrates through.
func (c *Client) SQLDB() (*sql.DB, error) { return c.conn.DB() }

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx commits when fn returns nil and rolls back on an error or a panic.
// Panics are re-raised after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
