package neighbors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Snapshot is the persisted row for one key.
type Snapshot struct {
	Name      string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	Digest    string         `gorm:"size:64"`
	Revision  uint           `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name across dialects.
func (Snapshot) TableName() string {
	return "neighbor_snapshots"
}

// GormStore persists neighbor maps in any GORM database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db. Call Migrate before first use.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Models lists the tables this store needs.
func Models() []any {
	return []any{&Snapshot{}}
}

// Migrate creates the snapshot table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(Models()...)
}

// Load decodes the map stored under key.
func (s *GormStore) Load(ctx context.Context, key string) (core.NeighborMap, error) {
	row, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Decode(row.Value)
}

// Get returns the raw row stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (Snapshot, error) {
	var row Snapshot
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load neighbor snapshot %q: %w", key, err)
	}
	return row, nil
}

// Save upserts m under key and bumps its revision.
func (s *GormStore) Save(ctx context.Context, key string, m core.NeighborMap) error {
	raw, err := Encode(m)
	if err != nil {
		return err
	}
	digest, err := Digest(m)
	if err != nil {
		return err
	}

	row := Snapshot{
		Name:     key,
		Value:    datatypes.JSON(raw),
		Digest:   digest,
		Revision: 1,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"digest":     row.Digest,
			"revision":   gorm.Expr("neighbor_snapshots.revision + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save neighbor snapshot %q: %w", key, err)
	}
	return nil
}
