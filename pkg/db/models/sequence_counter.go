package models

import "time"

// SequenceCounter holds the next ordinal for one document scope within
// one period key (e.g. scope "payment", period "202608"). The value is
// advanced with an atomic upsert so concurrent writers never observe the
// same ordinal.
type SequenceCounter struct {
	Scope     string    `gorm:"column:scope;primaryKey"`
	PeriodKey string    `gorm:"column:period_key;primaryKey"`
	NextValue int64     `gorm:"column:next_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
