package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/config"
)

// DB holds the primary pool and an optional read replica.
type DB struct {
	primary *sql.DB
	replica *sql.DB
}

// NewDB opens and pings the primary and, when enabled, the replica.
func NewDB(cfg *config.MySQLConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config is required")
	}

	primary, err := openPool(cfg, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	db := &DB{primary: primary}

	if cfg.Replica.Enabled {
		replica, err := openPool(cfg, config.MySQLInstanceConfig{
			Host:     cfg.Replica.Host,
			Port:     cfg.Replica.Port,
			Database: cfg.Replica.Database,
			Username: cfg.Replica.Username,
			Password: cfg.Replica.Password,
		})
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("replica: %w", err)
		}
		db.replica = replica
	}

	return db, nil
}

func openPool(cfg *config.MySQLConfig, inst config.MySQLInstanceConfig) (*sql.DB, error) {
	dsn := buildDSN(inst.Host, inst.Port, inst.Database, inst.Username, inst.Password, cfg.Charset, cfg.ParseTime, cfg.Timeout)

	pool, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}

	pool.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// buildDSN formats a go-sql-driver DSN:
// user:password@tcp(host:port)/database?charset=...&parseTime=...&timeout=...
func buildDSN(host string, port int, database, username, password, charset string, parseTime bool, timeout time.Duration) string {
	c := mysql.NewConfig()
	c.User = username
	c.Passwd = password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, port)
	c.DBName = database
	c.ParseTime = parseTime
	c.Timeout = timeout
	if charset != "" {
		c.Params = map[string]string{"charset": charset}
	}
	return c.FormatDSN()
}

// Primary returns the pool used for writes and consistent reads.
func (db *DB) Primary() *sql.DB {
	return db.primary
}

// Replica returns the read pool, falling back to the primary.
func (db *DB) Replica() *sql.DB {
	if db.replica != nil {
		return db.replica
	}
	return db.primary
}

// Ping checks connectivity to the primary and the replica (if configured).
func (db *DB) Ping(ctx context.Context) error {
	if err := db.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary ping failed: %w", err)
	}
	if db.replica != nil {
		if err := db.replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica ping failed: %w", err)
		}
	}
	return nil
}

// Close closes both pools.
func (db *DB) Close() error {
	var firstErr error
	for _, pool := range []*sql.DB{db.primary, db.replica} {
		if pool == nil {
			continue
		}
		if err := pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
