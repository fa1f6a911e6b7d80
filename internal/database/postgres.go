package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/config"
)

type Database struct {
	db     *sql.DB
	config *config.DatabaseConfig
	logger *zap.Logger
}

// ConnString returns DATABASE_URL when set, otherwise a key/value DSN built
// from the individual settings.
func ConnString(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)
}

func NewDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	db, err := sql.Open("postgres", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.IdleConnections)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int("max_connections", cfg.MaxConnections))

	return &Database{
		db:     db,
		config: cfg,
		logger: logger,
	}, nil
}

func (d *Database) Health() error {
	return d.db.Ping()
}

func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *Database) IsConnected() bool {
	return d.Health() == nil
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "001_installations",
		stmt: `CREATE TABLE IF NOT EXISTS installations (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
}

// RunMigrations applies the schema. Every statement is idempotent so it is
// safe to run on each start.
func (d *Database) RunMigrations(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := d.db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.name, err)
		}
		d.logger.Info("Migration executed successfully", zap.String("migration", m.name))
	}
	return nil
}
