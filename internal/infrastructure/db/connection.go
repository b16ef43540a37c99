// Package db manages the PostgreSQL connection pool and wires the cache
// stores onto it.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sawpanic/derivscan/internal/persistence"
	"github.com/sawpanic/derivscan/internal/persistence/postgres"
)

// Config holds database connection configuration.
type Config struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" default:"5m"`
	QueryTimeout    time.Duration `yaml:"query_timeout" default:"30s"`
}

// Stores is the collection of persistence implementations backed by one
// connection pool.
type Stores struct {
	Source          persistence.SeriesSource
	Snapshots       persistence.SnapshotStore
	Expiries        persistence.ExpiryStore
	Classifications persistence.ClassificationStore
	Memberships     persistence.MembershipSource
}

// Manager owns the connection pool and the store collection.
type Manager struct {
	db     *sqlx.DB
	config Config
	stores *Stores
}

// NewManager opens the pool, verifies connectivity and builds the stores.
func NewManager(config Config) (*Manager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Manager{
		db:     db,
		config: config,
		stores: &Stores{
			Source:          postgres.NewSeriesSource(db, config.QueryTimeout),
			Snapshots:       postgres.NewSnapshotStore(db, config.QueryTimeout),
			Expiries:        postgres.NewExpiryStore(db, config.QueryTimeout),
			Classifications: postgres.NewClassificationStore(db, config.QueryTimeout),
			Memberships:     postgres.NewMembershipSource(db, config.QueryTimeout),
		},
	}, nil
}

// Stores returns the store collection.
func (m *Manager) Stores() *Stores {
	return m.stores
}

// DB returns the underlying pool, for migrations.
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

// EnsureSchema creates the cache tables if missing.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	return postgres.EnsureSchema(ctx, m.db)
}

// Ping verifies connectivity within the configured query timeout.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()
	return m.db.PingContext(ctx)
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}
