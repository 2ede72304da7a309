package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fibc/backend/internal/domain/numbering"
	"gorm.io/gorm"
)

// DocumentSequence is the per-prefix, per-day counter behind document numbers
type DocumentSequence struct {
	Prefix string `gorm:"type:varchar(8);primaryKey"`
	Day    string `gorm:"type:varchar(8);primaryKey"`
	Value  int    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequence) TableName() string {
	return "document_sequences"
}

const nextSequenceSQL = `INSERT INTO document_sequences (prefix, day, value) VALUES (?, ?, 1)
ON CONFLICT (prefix, day) DO UPDATE SET value = document_sequences.value + 1
RETURNING value`

// GormSequenceRepository implements numbering.SequenceRepository with a single
// upsert, so concurrent callers never observe the same value.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next increments and returns the sequence for prefix on day
func (r *GormSequenceRepository) Next(ctx context.Context, prefix string, day time.Time) (int, error) {
	var value int
	if err := r.db.WithContext(ctx).Raw(nextSequenceSQL, prefix, day.Format("20060102")).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("advance %s sequence: %w", prefix, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("advance %s sequence: no value returned", prefix)
	}
	return value, nil
}

var _ numbering.SequenceRepository = (*GormSequenceRepository)(nil)
