package repository

import (
	"context"
	"errors"

	"github.com/subtracklabs/subtrack/internal/record/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &Repository{db: db}
}

// Get returns the record for the account, or nil when absent.
func (r *Repository) Get(ctx context.Context, accountID string) (*domain.Record, error) {
	var record domain.Record
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Set creates the record, replacing an existing one for the same account.
// Used only when seeding a fresh pending record; all later writes go through
// Update.
func (r *Repository) Set(ctx context.Context, record *domain.Record) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

// Update applies a targeted partial-field merge. Fields absent from the map
// keep their stored values.
func (r *Repository) Update(ctx context.Context, accountID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("account_id = ?", accountID).
		Updates(fields).Error
}

func (r *Repository) AppendEventLog(ctx context.Context, entry *domain.EventLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
