// database/postgres.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the relational shape of a document.
type DocumentRow struct {
	Collection string         `gorm:"primaryKey;type:varchar(64)"`
	ID         string         `gorm:"primaryKey;type:varchar(255)"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (DocumentRow) TableName() string { return "documents" }

// PostgresStore is the server relational backend.
type PostgresStore struct {
	dsn string
	DB  *gorm.DB
}

func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

// NewPostgresStoreFromDB wraps an already opened gorm handle.
func NewPostgresStoreFromDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Connect(ctx context.Context) error {
	if s.DB == nil {
		if s.dsn == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
		db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		s.DB = db
	}
	if err := s.DB.WithContext(ctx).AutoMigrate(&DocumentRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var row DocumentRow
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Data), nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data []byte) error {
	row := DocumentRow{Collection: collection, ID: id, Data: datatypes.JSON(data)}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res := s.DB.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&DocumentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	var rows []DocumentRow
	if err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, len(rows))
	for i, r := range rows {
		docs[i] = Document{ID: r.ID, Data: []byte(r.Data)}
	}
	return docs, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&DocumentRow{}).
		Where("collection = ?", collection).
		Count(&n).Error
	return int(n), err
}

func (s *PostgresStore) Clear(ctx context.Context, collection string) error {
	return s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Delete(&DocumentRow{}).Error
}
