package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/database"
)

// PostgresStore keeps installations in the installations table.
type PostgresStore struct {
	db     *database.Database
	logger *zap.Logger
}

func NewPostgresStore(db *database.Database, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresStore) Save(ctx context.Context, inst *Installation) error {
	key, data, err := encode(inst)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO installations (id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := r.db.GetDB().ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to save installation: %w", err)
	}

	r.logger.Debug("Installation saved", zap.String("key", key))
	return nil
}

func (r *PostgresStore) Fetch(ctx context.Context, key string) (*Installation, error) {
	var data string
	err := r.db.GetDB().QueryRowContext(ctx, `SELECT data FROM installations WHERE id = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to fetch installation: %w", err)
	}
	return decode(key, data)
}

func (r *PostgresStore) Delete(ctx context.Context, key string) error {
	result, err := r.db.GetDB().ExecContext(ctx, `DELETE FROM installations WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete installation: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		r.logger.Debug("Installation deleted", zap.String("key", key))
	}
	return nil
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}
