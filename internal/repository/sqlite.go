package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type installationRow struct {
	ID        string `gorm:"primaryKey"`
	Data      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (installationRow) TableName() string { return "installations" }

// SQLiteStore keeps installations in a local SQLite file through GORM.
type SQLiteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&installationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
	}

	logger.Info("SQLite installation store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, inst *Installation) error {
	key, data, err := encode(inst)
	if err != nil {
		return err
	}

	row := installationRow{ID: key, Data: data, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save installation: %w", err)
	}

	s.logger.Debug("Installation saved", zap.String("key", key))
	return nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, key string) (*Installation, error) {
	var row installationRow
	err := s.db.WithContext(ctx).Where("id = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to fetch installation: %w", err)
	}
	return decode(key, row.Data)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", key).Delete(&installationRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete installation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
