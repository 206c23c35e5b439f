package sequence

import (
	"context"

	"gorm.io/gorm"
)

// Repository reserves ordinals from the sequence_counters table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Reserve(ctx context.Context, scope, periodKey string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sequence repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Reserve atomically claims the next ordinal for (scope, periodKey). The
// upsert runs as a single statement, so two concurrent callers can never
// observe the same value.
func (r *repository) Reserve(ctx context.Context, scope, periodKey string) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (scope, period_key, next_value, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (scope, period_key)
		DO UPDATE SET next_value = sequence_counters.next_value + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING next_value`,
		scope, periodKey,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
