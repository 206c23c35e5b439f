package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailySummary is a materialized aggregate of completed transactions for
// one calendar day, overwritten whenever a transaction for that day is
// recorded.
type DailySummary struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SummaryDate   time.Time       `gorm:"column:summary_date;type:date;not null;uniqueIndex"`
	TotalIncome   decimal.Decimal `gorm:"column:total_income;type:numeric(14,2);not null;default:0"`
	TotalExpenses decimal.Decimal `gorm:"column:total_expenses;type:numeric(14,2);not null;default:0"`
	NetProfit     decimal.Decimal `gorm:"column:net_profit;type:numeric(14,2);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
