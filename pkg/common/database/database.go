package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"devdb/pkg/common/config"
	"devdb/pkg/common/fs"
	"devdb/pkg/common/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Client is a gorm connection that can be disconnected and transparently
// reopened on next use.
type Client struct {
	mu     sync.Mutex
	cfg    config.Database
	models []interface{}
	db     *gorm.DB
	target string
	log    *zerolog.Logger
}

// Open connects using cfg and auto migrates models.
func Open(ctx context.Context, cfg config.Database, models ...interface{}) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		models: models,
		log:    logger.WithComponent("database"),
	}
	if _, err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConstructor returns an Open variant with the models bound, matching the
// constructor shape expected by the guard factory.
func NewConstructor(models ...interface{}) func(context.Context, config.Database) (*Client, error) {
	return func(ctx context.Context, cfg config.Database) (*Client, error) {
		return Open(ctx, cfg, models...)
	}
}

// Dialector resolves the gorm dialector for cfg. For sqlite without a DSN the
// database file lives in the project's .runtime directory.
func Dialector(cfg config.Database) (gorm.Dialector, string, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			fsys, err := fs.New()
			if err != nil {
				return nil, "", fmt.Errorf("filesystem init failed: %w", err)
			}
			name := cfg.Name
			if name == "" {
				name = config.Default().Database.Name
			}
			dsn = fsys.RuntimeFile(name)
		}
		return sqlite.Open(dsn), dsn, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, "", fmt.Errorf("postgres: dsn is required")
		}
		return postgres.Open(cfg.DSN), "postgres", nil
	case DriverMySQL:
		if cfg.DSN == "" {
			return nil, "", fmt.Errorf("mysql: dsn is required")
		}
		return mysql.Open(cfg.DSN), "mysql", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func (c *Client) connect(ctx context.Context) (*gorm.DB, error) {
	dialector, target, err := Dialector(c.cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(c.log)})
	if err != nil {
		return nil, fmt.Errorf("open db failed: %w", err)
	}
	db = db.WithContext(ctx)
	if len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}
	// drop the open-time context so later queries are not bound to it
	c.db = db.WithContext(context.Background())
	c.target = target
	c.log.Info().Str("driver", dialector.Name()).Str("db", target).Msg("database connected")
	return c.db, nil
}

// DB returns the gorm handle, reconnecting if the client was disconnected.
func (c *Client) DB() (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	return c.connect(context.Background())
}

// Connected reports whether a live connection is held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db != nil
}

// Target is the sqlite file path or the driver name of the connection.
func (c *Client) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Ping verifies the connection, reopening it if needed.
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Disconnect closes the underlying connection pool. Calling it on a
// disconnected client is a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db failed: %w", err)
	}
	c.log.Info().Str("db", c.target).Msg("database disconnected")
	return nil
}

// gormWriter forwards gorm's printf-style output to zerolog
type gormWriter struct{ log *zerolog.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Debug().Msgf(format, args...)
}

func newGormLogger(l *zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if config.IsDebug() {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{log: l}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
