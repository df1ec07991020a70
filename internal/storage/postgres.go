package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type snapshotRecord struct {
	ViewerID  string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"primaryKey;size:64"`
	Value     []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string { return "battle_snapshots" }

type PostgresStore struct {
	db *gorm.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DATABASE_URL required for postgres store")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, viewer string, key Key) ([]byte, error) {
	var rec snapshotRecord
	err := s.db.WithContext(ctx).
		Where("viewer_id = ? AND name = ?", viewer, string(key)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", key, err)
	}
	return rec.Value, nil
}

func (s *PostgresStore) Set(ctx context.Context, viewer string, key Key, value []byte) error {
	rec := snapshotRecord{ViewerID: viewer, Name: string(key), Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, viewer string, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, string(key))
	}
	err := s.db.WithContext(ctx).
		Where("viewer_id = ? AND name IN ?", viewer, names).
		Delete(&snapshotRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
